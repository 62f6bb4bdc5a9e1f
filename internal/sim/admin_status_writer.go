package sim

// AdminStatusWriter lets sinks surface where the admin console listens.
type AdminStatusWriter interface {
	SetAdminAddr(addr string)
}

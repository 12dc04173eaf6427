package vectorstore

// Capability is the optional handle to a Store. It is decided once at
// startup: when the backend fails to initialize the capability is Disabled
// and dependents degrade instead of failing their requests.
type Capability struct {
	store *Store
}

func Enabled(store *Store) Capability {
	if store == nil {
		panic("enabled capability requires a store")
	}
	return Capability{store: store}
}

func Disabled() Capability {
	return Capability{}
}

func (c Capability) Enabled() bool {
	return c.store != nil
}

// Store returns the underlying store, or nil when the capability is
// disabled.
func (c Capability) Store() *Store {
	return c.store
}

package zmq

// Gracefully stops module
func (mod *OutModule) Shutdown() (err error) {
	if mod == nil {
		return
	}
	if mod.sink != nil {
		err = mod.sink.Close()
	}
	return
}

// Gracefully stops module, unblocking any pending Read
func (mod *InModule) Shutdown() (err error) {
	if mod == nil {
		return
	}
	if mod.source != nil {
		err = mod.source.Close()
	}
	return
}

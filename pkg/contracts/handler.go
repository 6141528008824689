package contracts

import "github.com/julienschmidt/httprouter"

type Handler interface {
	RegisterRoutes(*httprouter.Router)
}

// Worker is a background job that runs for the lifetime of the server.
type Worker interface {
	Start()
	Stop()
}

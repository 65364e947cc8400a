// (c) Copyright 2021 Hewlett Packard Enterprise Development LP

package util

import (
	"net/http"

	"github.com/gorilla/mux"
)

// Route is one entry of a route table handed to InitializeRouter.
type Route struct {
	Name        string
	Method      string
	Pattern     string
	HandlerFunc http.HandlerFunc
}

// InitializeRouter registers every route in routes against router.
func InitializeRouter(router *mux.Router, routes []Route) {
	for _, route := range routes {
		router.
			Methods(route.Method).
			Path(route.Pattern).
			Name(route.Name).
			Handler(route.HandlerFunc)
	}
}

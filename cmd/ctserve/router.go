package main

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/interpose/middleware"
	"github.com/justinas/alice"
)

func router(config *Global) http.Handler {
	router := mux.NewRouter()
	POST := router.Methods("POST").Subrouter()
	PUT := router.Methods("PUT").Subrouter()
	GET := router.Methods("GET", "HEAD").Subrouter()

	h := handler{Global: config, router: router}

	GET.HandleFunc("/version", h.Version).Name("version")
	GET.HandleFunc("/panels", h.ListPanels).Name("panels")
	GET.HandleFunc("/panels/{name}", h.GetPanel).Name("panel")
	GET.HandleFunc("/panels/{name}/channels", h.ListChannels).Name("channels")
	GET.HandleFunc("/runs", h.ListRuns).Name("runs")
	GET.HandleFunc("/runs/{id:[0-9]+}", h.GetRun).Name("run")

	//
	// PUT
	//
	PUT.HandleFunc("/panels/{name}", h.PutPanel)

	//
	// POST
	//
	POST.HandleFunc("/analyze/{name}", h.Analyze)

	standard := alice.New(
		// Log all requests to STDOUT
		middleware.GorillaLog(),
	)

	return standard.Then(router)
}

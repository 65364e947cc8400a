// (c) Copyright 2021 Hewlett Packard Enterprise Development LP

package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/hpe-storage/iscsid/collab/hostcollab"
	"github.com/hpe-storage/iscsid/discovery"
	"github.com/hpe-storage/iscsid/httpapi"
	"github.com/hpe-storage/iscsid/logger"
	"github.com/hpe-storage/iscsid/store/etcdstore"
)

func main() {
	etcdEndpoints := flag.String("etcd-endpoints", "localhost:2379", "comma-separated etcd endpoints backing the discovery store")
	listenAddr := flag.String("listen", ":8126", "address the local control/status surface listens on")
	chapOverrideFile := flag.String("chap-override-file", "/etc/iscsid/chap.json", "optional local file with a chap_user/chap_secret override")
	logFile := flag.String("log-file", "iscsid.log", "log file path")
	restart := flag.Bool("restart", false, "this is a daemon restart reloading existing state, not a fresh install")
	flag.Parse()

	err, log := logger.InitLogging(*logFile, nil, true, true)
	if err != nil {
		panic(err)
	}
	defer log.CloseTracer()

	log.Info("**********************************************")
	log.Info("***************** iscsid *********************")
	log.Info("**********************************************")

	st, err := etcdstore.NewStore(strings.Split(*etcdEndpoints, ","))
	if err != nil {
		log.Errorf("failed to connect to etcd: %s", err.Error())
		os.Exit(1)
	}
	defer st.Close()

	if err := st.WatchChapOverride(context.Background(), *chapOverrideFile); err != nil {
		log.Warnf("chap override watch disabled: %s", err.Error())
	}

	coord, err := discovery.Init(discovery.Config{
		Store:             st,
		SessionManager:    hostcollab.SessionManager{},
		SendTargetsClient: hostcollab.SendTargetsClient{},
		IsnsClient:        hostcollab.IsnsClient{},
		EventSink:         discovery.LogEventSink{},
	}, *restart)
	if err != nil {
		log.Errorf("discovery init failed: %s", err.Error())
		os.Exit(1)
	}
	defer coord.Fini()

	router := httpapi.NewRouter(coord)
	server := &http.Server{Addr: *listenAddr, Handler: router}

	go func() {
		log.Infof("control surface listening on %s", *listenAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorf("control surface stopped: %s", err.Error())
		}
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc

	log.Info("shutting down")
	server.Close()
}

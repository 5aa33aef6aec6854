package main

import (
	"context"
	"fmt"
	"log"
	"os"

	echoportal "github.com/trezcool/academia/apps/portal/echo"
	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/services/authclient"
	logsvc "github.com/trezcool/academia/services/logger"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(log.New(os.Stdout, "PORTAL : ", log.LstdFlags), conf)
	defer logger.Close()

	logger.Info(fmt.Sprintf("%s portal initializing : version %q", conf.Portal.App, conf.Build))
	defer logger.Info("Portal stopped")

	server, err := echoportal.NewServer(conf, logger, authclient.New(conf.Portal.APIBaseURL, nil))
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up portal: %v", err), err)
	}

	go server.Start()

	select {
	case err := <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

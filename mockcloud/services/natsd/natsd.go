package natsd

import (
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mulgadc/mockcloud/mockcloud/config"
	"github.com/mulgadc/mockcloud/mockcloud/utils"
	"github.com/nats-io/nats-server/v2/server"
	"go.uber.org/automaxprocs/maxprocs"
)

var serviceName = "nats"

type Service struct {
	Config *config.Config
}

func New(cfg any) (svc *Service, err error) {
	svc = &Service{
		Config: cfg.(*config.Config),
	}
	return svc, nil
}

func (svc *Service) Start() (int, error) {
	utils.WritePidFile(serviceName, os.Getpid())
	err := launchService(svc.Config)
	if err != nil {
		return 0, err
	}
	return os.Getpid(), nil
}

func (svc *Service) Stop() (err error) {
	err = utils.StopProcess(serviceName)
	return err
}

func (svc *Service) Status() (string, error) {
	return "", nil
}

func (svc *Service) Shutdown() (err error) {
	return svc.Stop()
}

func (svc *Service) Reload() (err error) {
	return nil
}

func launchService(cfg *config.Config) (err error) {

	storeDir := cfg.NATS.StoreDir
	if storeDir == "" {
		storeDir = filepath.Join(cfg.DataDir, "nats")
	}

	// JetStream backs the IAM KV buckets, always on.
	opts := &server.Options{
		JetStream: true,
		StoreDir:  storeDir,
	}

	if cfg.NATS.Host != "" {
		addr := strings.TrimPrefix(cfg.NATS.Host, "nats://")
		if host, portStr, err := net.SplitHostPort(addr); err == nil {
			opts.Host = host
			opts.Port, _ = strconv.Atoi(portStr)
		} else {
			opts.Host = addr
		}
	}

	if opts.Port == 0 {
		opts.Port = 4222
	}
	if opts.Host == "" {
		opts.Host = "0.0.0.0"
	}

	if cfg.NATS.ACL.Token != "" {
		opts.Authorization = cfg.NATS.ACL.Token
	}

	ns, err := server.NewServer(opts)
	if err != nil {
		slog.Error("Failed to create NATS server", "err", err)
		return err
	}

	ns.ConfigureLogger()

	if err := server.Run(ns); err != nil {
		// Will exit() here
		server.PrintAndDie(err.Error())
	}

	// Adjust MAXPROCS if running under linux/cgroups quotas.
	undo, err := maxprocs.Set(maxprocs.Logger(ns.Debugf))
	if err != nil {
		slog.Warn("Failed to set GOMAXPROCS", "err", err)
	} else {
		defer undo()
	}

	ns.WaitForShutdown()

	return nil
}

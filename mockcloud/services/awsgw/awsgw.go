package awsgw

import (
	"errors"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/mulgadc/mockcloud/mockcloud/config"
	"github.com/mulgadc/mockcloud/mockcloud/gateway"
	"github.com/mulgadc/mockcloud/mockcloud/iam"
	"github.com/mulgadc/mockcloud/mockcloud/iam/policy"
	"github.com/mulgadc/mockcloud/mockcloud/utils"
	"github.com/nats-io/nats.go"
)

var serviceName = "awsgw"

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

	// Connect to NATS for state persistence
	opts := []nats.Option{
		nats.Token(cfg.NATS.ACL.Token),
		nats.ReconnectWait(time.Second),
		nats.MaxReconnects(-1), // Infinite reconnects
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Printf("NATS disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("NATS reconnected to %s", nc.ConnectedUrl())
		}),
	}

	natsConn, err := nats.Connect(cfg.NATS.Host, opts...)
	if err != nil {
		slog.Error("Failed to connect to NATS", "err", err)
		return err
	}
	defer natsConn.Close()

	slog.Info("Connected to NATS server", "host", cfg.NATS.Host)

	store, err := setupStore(cfg, natsConn)
	if err != nil {
		return err
	}

	if err := registerAdminSubjects(natsConn, cfg, store); err != nil {
		slog.Error("Failed to register admin subjects", "err", err)
		return err
	}

	gw := gateway.GatewayConfig{
		Debug:          cfg.Gateway.Debug,
		DisableLogging: false,
		NATSConn:       natsConn,
		Region:         cfg.Region,
		IAMService:     store,
		Engine:         policy.NewEngine(store),
	}

	app := gw.SetupRoutes()

	if cfg.Gateway.TLSCert != "" && cfg.Gateway.TLSKey != "" {
		log.Fatal(app.ListenTLS(cfg.Gateway.Host, cfg.Gateway.TLSCert, cfg.Gateway.TLSKey))
	} else {
		log.Fatal(app.Listen(cfg.Gateway.Host))
	}

	return nil
}

// setupStore loads the master key, replays persisted IAM state from
// JetStream, and seeds the root user on first boot.
func setupStore(cfg *config.Config, natsConn *nats.Conn) (*iam.Store, error) {

	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		slog.Error("Failed to create data dir", "path", cfg.DataDir, "err", err)
		return nil, err
	}

	masterKey, err := loadOrCreateMasterKey(cfg.MasterKeyPath())
	if err != nil {
		return nil, err
	}

	kv, err := iam.NewNatsKV(natsConn)
	if err != nil {
		slog.Error("Failed to open IAM KV buckets", "err", err)
		return nil, err
	}

	store, err := iam.NewStore(masterKey, kv)
	if err != nil {
		slog.Error("Failed to load IAM store", "err", err)
		return nil, err
	}

	empty, err := store.IsEmpty()
	if err != nil {
		return nil, err
	}
	if empty {
		if err := bootstrapRoot(cfg, store); err != nil {
			return nil, err
		}
	}

	return store, nil
}

func loadOrCreateMasterKey(path string) ([]byte, error) {
	masterKey, err := iam.LoadMasterKey(path)
	if err == nil {
		return masterKey, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		slog.Error("Failed to read master key", "path", path, "err", err)
		return nil, err
	}

	masterKey, err = iam.GenerateMasterKey()
	if err != nil {
		return nil, err
	}
	if err := iam.SaveMasterKey(path, masterKey); err != nil {
		slog.Error("Failed to write master key", "path", path, "err", err)
		return nil, err
	}
	slog.Info("Generated new IAM master key", "path", path)
	return masterKey, nil
}

// bootstrapRoot seeds the root user with fresh credentials and writes them
// to the bootstrap file for the operator to collect.
func bootstrapRoot(cfg *config.Config, store *iam.Store) error {
	data := &iam.BootstrapData{
		AccountID:       iam.RootAccountID,
		AccessKeyID:     iam.GenerateAccessKeyID(),
		SecretAccessKey: iam.GenerateSecretAccessKey(),
	}

	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		data.AccessKeyID = cfg.AccessKey
		data.SecretAccessKey = cfg.SecretKey
	}

	if err := store.SeedRootUser(data); err != nil {
		slog.Error("Failed to seed root user", "err", err)
		return err
	}

	if err := iam.SaveBootstrapData(cfg.BootstrapPath(), data); err != nil {
		slog.Error("Failed to write bootstrap credentials", "err", err)
		return err
	}

	slog.Info("Root user seeded", "accessKeyID", data.AccessKeyID, "bootstrap", cfg.BootstrapPath())
	return nil
}

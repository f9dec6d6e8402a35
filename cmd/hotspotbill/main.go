package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/talkincode/hotspotbill/config"
	"github.com/talkincode/hotspotbill/internal/adminapi"
	"github.com/talkincode/hotspotbill/internal/app"
)

var (
	h       = flag.Bool("h", false, "display help")
	showVer = flag.Bool("v", false, "display version")
	cfile   = flag.String("c", "/etc/hotspotbill.yml", "config file")
	initdb  = flag.Bool("initdb", false, "drop and recreate all tables, seed defaults")
	initcfg = flag.Bool("initcfg", false, "write a default config file and exit")
)

var (
	BuildVersion = "dev"
	BuildTime    = ""
)

func printVersion() {
	fmt.Printf("hotspotbill %s %s\n", BuildVersion, BuildTime)
}

func printHelp() {
	if flag.NFlag() == 0 {
		fmt.Fprintln(os.Stderr, "Usage: hotspotbill [options]")
		flag.PrintDefaults()
	}
	os.Exit(0)
}

func main() {
	flag.Parse()
	if *h {
		printHelp()
	}
	if *showVer {
		printVersion()
		os.Exit(0)
	}

	if *initcfg {
		data, err := os.ReadFile(*cfile)
		if err == nil && len(data) > 0 {
			fmt.Fprintf(os.Stderr, "config file %s already exists\n", *cfile)
			os.Exit(1)
		}
		if err := writeDefaultConfig(*cfile); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("default config written to %s\n", *cfile)
		os.Exit(0)
	}

	cfg := config.LoadConfig(*cfile)

	application := app.NewApplication(cfg)
	application.Init(cfg)
	defer application.Release()

	if *initdb {
		application.InitDb()
		zap.L().Info("database initialized")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	application.StartBackgroundJobs(ctx)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = false

	server := &adminapi.Server{
		Devices:   application.DeviceService(),
		Vouchers:  application.VoucherService(),
		Reconcile: application.ReconcileService(),
		History:   application.HistoryService(),
		Store:     application.EngineStore(),
	}
	server.Register(e)

	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.Web.Host, cfg.Web.Port)
		zap.S().Infof("admin api listening on %s", addr)
		if err := e.Start(addr); err != nil {
			zap.S().Infof("admin api stopped: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	zap.L().Info("shutting down")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = e.Shutdown(shutdownCtx)
}

func writeDefaultConfig(path string) error {
	const tpl = `system:
  appid: hotspotbill
  location: Asia/Jakarta
  workdir: /var/hotspotbill
  debug: true
web:
  host: 0.0.0.0
  port: 1816
database:
  type: postgres
  host: 127.0.0.1
  port: 5432
  name: hotspotbill
  user: postgres
  passwd: myroot
logger:
  mode: development
  file_enable: true
  filename: /var/hotspotbill/hotspotbill.log
hotspot:
  connect_timeout_sec: 10
  retry_attempts: 3
  retry_backoff_sec: 1
  rate_window_sec: 60
  rate_limit: 100
  voucher_prefix: WF
sms:
  enabled: false
  gateway: ""
  apikey: ""
  sender: hotspotbill
`
	return os.WriteFile(path, []byte(tpl), 0o644)
}

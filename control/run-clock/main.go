package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jrockway/console-clock/control/config"
	"github.com/jrockway/console-clock/control/console"
	"github.com/jrockway/console-clock/control/history"
	"github.com/jrockway/console-clock/control/irq"
	"github.com/jrockway/console-clock/control/rtc"
	"github.com/jrockway/console-clock/control/screen"
	"github.com/jrockway/console-clock/control/uart"
	"github.com/jrockway/periphflag"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"periph.io/x/extra/hostextra"
	"periph.io/x/periph/conn/gpio"
)

var (
	configPath = flag.String("config", "", "yaml config file; built-in defaults are used if empty")
	bind       = flag.String("bind", "", "address to bind for debug/metrics server, overriding the config")
	serialPort = flag.String("serial", "", "serial port for the console, overriding the config")
	dbPath     = flag.String("db", "", "sqlite database for the commit log, overriding the config")
	spi        string
)

// loop is a long-running goroutine whose death ends the program.
type loop struct {
	name string
	run  func(ctx context.Context) error
}

type loopResult struct {
	name string
	err  error
}

func main() {
	if _, err := hostextra.Init(); err != nil {
		log.Fatalf("init periph.io: %v", err)
	}
	periphflag.SPIDevVar(&spi, "spi", "", "spi bus that the display is on, overriding the config")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			log.Fatalf("config load failed: %v", err)
		}
	}
	applyFlags(cfg)
	if err := config.Validate(cfg); err != nil {
		log.Fatalf("config validation failed: %v", err)
	}

	driver, closeDriver, err := newDriver(cfg.Display)
	if err != nil {
		log.Fatalf("init display: %v", err)
	}
	defer closeDriver()
	leds := screen.NewScreen(driver)
	if err := leds.Blank(); err != nil {
		log.Printf("blank display: %v", err)
	}

	src, closeSource, err := newSource(cfg.RTC)
	if err != nil {
		log.Fatalf("init rtc: %v", err)
	}
	defer closeSource()
	if t, ok := startTime(cfg.RTC, time.Now()); ok {
		if err := src.CommitTime(t); err != nil {
			log.Fatalf("set rtc to %v: %v", t, err)
		}
	}

	port, closePort, err := newPort(cfg.Serial)
	if err != nil {
		log.Fatalf("init serial port: %v", err)
	}
	defer closePort()

	name := cfg.Serial.Port
	if name == "" {
		name = "null"
	}
	m := console.New(name, src, port, leds)
	defer m.Close()

	loops := []loop{
		{"uart", func(ctx context.Context) error { return port.Run(ctx, m) }},
		{"console", func(ctx context.Context) error { return m.Run(ctx, cfg.PollInterval) }},
	}

	if p := cfg.RTC.AlarmPin; p != "" {
		pin, err := inputPin(p)
		if err != nil {
			log.Fatalf("alarm pin: %v", err)
		}
		loops = append(loops, loop{"alarm", func(ctx context.Context) error {
			return irq.Watch(ctx, pin, gpio.PullUp, gpio.FallingEdge, m.Tick)
		}})
	} else {
		loops = append(loops, loop{"alarm", func(ctx context.Context) error { return rtc.Alarm(ctx, m.Tick) }})
	}

	if p := cfg.Button.Pin; p != "" {
		pin, err := inputPin(p)
		if err != nil {
			log.Fatalf("button pin: %v", err)
		}
		loops = append(loops, loop{"button", func(ctx context.Context) error {
			return irq.Watch(ctx, pin, gpio.PullUp, gpio.FallingEdge, m.Press)
		}})
	}

	page := &statusPage{console: m, display: leds}
	if cfg.Database != "" {
		db, err := history.OpenDatabase(cfg.Database)
		if err != nil {
			log.Fatalf("open commit log: %v", err)
		}
		defer db.Close()
		page.history = db
		loops = append(loops, loop{"history", func(ctx context.Context) error { return db.Run(ctx, m.CommitCh) }})
	}

	http.Handle("/", page)
	http.Handle("/display.png", leds)
	http.Handle("/metrics", promhttp.Handler())

	ctx, cancel := context.WithCancel(context.Background())

	httpDoneCh := make(chan error)
	httpServer := http.Server{Addr: cfg.Bind}
	go func() {
		log.Printf("http server listening on %s", httpServer.Addr)
		err := httpServer.ListenAndServe()
		select {
		case httpDoneCh <- err:
		case <-ctx.Done():
		}
		close(httpDoneCh)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	loopDoneCh := make(chan loopResult, len(loops))
	for _, l := range loops {
		l := l
		go func() { loopDoneCh <- loopResult{name: l.name, err: l.run(ctx)} }()
	}

	httpAlive := true
	select {
	case err := <-httpDoneCh:
		log.Printf("http server died: %v", err)
		httpAlive = false
	case res := <-loopDoneCh:
		log.Printf("%s loop died: %v", res.name, res.err)
	case <-sigCh:
		log.Printf("interrupt")
	}
	signal.Stop(sigCh)
	cancel()
	if err := leds.Blank(); err != nil {
		log.Printf("blank display: %v", err)
	}
	if httpAlive {
		tctx, c := context.WithTimeout(context.Background(), time.Second)
		httpServer.Shutdown(tctx)
		c()
	}
}

func applyFlags(cfg *config.Config) {
	if *bind != "" {
		cfg.Bind = *bind
	}
	if *serialPort != "" {
		cfg.Serial.Port = *serialPort
	}
	if *dbPath != "" {
		cfg.Database = *dbPath
	}
	if spi != "" {
		cfg.Display.Driver = config.DisplaySPI
		cfg.Display.SPI = spi
	}
}

// newPort opens the configured serial port.  Without one, the console talks to a port that never
// receives anything and discards what it sends.
func newPort(cfg config.SerialConfig) (*uart.Port, func(), error) {
	if cfg.Port == "" {
		r, w := io.Pipe()
		return uart.New(nullPort{Reader: r, Writer: io.Discard}), func() { w.Close() }, nil
	}
	p, closer, err := uart.Open(cfg.Port, cfg.Baud)
	if err != nil {
		return nil, nil, fmt.Errorf("open console: %w", err)
	}
	return p, func() { closer.Close() }, nil
}

type nullPort struct {
	io.Reader
	io.Writer
}

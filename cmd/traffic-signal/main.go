// Command traffic-signal runs a three-lamp traffic signal, driving GPIO lamps
// and publishing state changes to MQTT, with a web control panel.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sweeney/traffic-signal/internal/config"
	"github.com/sweeney/traffic-signal/internal/controller"
	"github.com/sweeney/traffic-signal/internal/gpio"
	"github.com/sweeney/traffic-signal/internal/logic"
	"github.com/sweeney/traffic-signal/internal/mqtt"
	"github.com/sweeney/traffic-signal/internal/render"
	"github.com/sweeney/traffic-signal/internal/status"
	"github.com/sweeney/traffic-signal/internal/web"
)

type options struct {
	configPath string
	broker     string
	heartbeat  time.Duration
	httpAddr   string
	gpioChip   string
	lampPins   gpio.LampPins
	buttonPins gpio.ButtonPins
	poll       time.Duration
	debounce   time.Duration
	autostart  bool
	renderPath string
}

func main() {
	var o options
	flag.StringVar(&o.configPath, "config", "", "YAML plan file with durations and timing (empty for defaults)")
	flag.StringVar(&o.broker, "broker", "tcp://192.168.1.200:1883", "MQTT broker address (empty to disable)")
	flag.DurationVar(&o.heartbeat, "heartbeat", 15*time.Minute, "Heartbeat interval (0 to disable)")
	flag.StringVar(&o.httpAddr, "http", ":80", "HTTP control panel address (empty to disable)")
	flag.StringVar(&o.gpioChip, "gpio-chip", "gpiochip0", "GPIO chip for lamps and buttons (empty to disable)")
	flag.IntVar(&o.lampPins[logic.SlotRed], "pin-red", gpio.DefaultPinRed, "BCM pin number for the red lamp")
	flag.IntVar(&o.lampPins[logic.SlotYellow], "pin-yellow", gpio.DefaultPinYellow, "BCM pin number for the yellow lamp")
	flag.IntVar(&o.lampPins[logic.SlotGreen], "pin-green", gpio.DefaultPinGreen, "BCM pin number for the green lamp")
	flag.IntVar(&o.buttonPins.Start, "pin-start", gpio.DefaultPinStart, "BCM pin number for the START button")
	flag.IntVar(&o.buttonPins.Stop, "pin-stop", gpio.DefaultPinStop, "BCM pin number for the STOP button")
	flag.IntVar(&o.buttonPins.Emergency, "pin-emergency", gpio.DefaultPinEmergency, "BCM pin number for the EMERGENCY button")
	flag.DurationVar(&o.poll, "poll", 50*time.Millisecond, "Button polling interval")
	flag.DurationVar(&o.debounce, "debounce", 100*time.Millisecond, "Button debounce duration")
	flag.BoolVar(&o.autostart, "autostart", false, "Start the cycle immediately")
	flag.StringVar(&o.renderPath, "render", "", "Write a PNG of the signal head to this path and exit")

	flag.Parse()

	if err := run(o); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(o options) error {
	plan, err := config.Load(o.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	model := logic.NewModel(plan.Durations, plan.InitialDensity)
	sink := controller.NewChanSink()
	ctl := controller.New(model, sink, plan.Timing)
	defer ctl.Close()

	// Render mode
	if o.renderPath != "" {
		return renderFile(o.renderPath, ctl.State())
	}

	var lamps gpio.Lamps
	var buttons gpio.Buttons
	if o.gpioChip != "" {
		l, err := gpio.NewRealLamps(o.gpioChip, o.lampPins)
		if err != nil {
			return fmt.Errorf("init lamps: %w", err)
		}
		defer l.Close()
		lamps = l

		b, err := gpio.NewRealButtons(o.gpioChip, o.buttonPins)
		if err != nil {
			return fmt.Errorf("init buttons: %w", err)
		}
		defer b.Close()
		buttons = b
	}

	// Initialize MQTT
	var publisher mqtt.Publisher = discardPublisher{}
	var mqttStatus mqtt.ConnectionStatus
	if o.broker != "" {
		p, err := mqtt.NewRealPublisher(o.broker, "traffic-signal")
		if err != nil {
			return fmt.Errorf("init mqtt: %w", err)
		}
		defer p.Close()
		if err := p.Subscribe(ctl.Dispatch); err != nil {
			log.Printf("failed to subscribe to %s: %v", mqtt.TopicCommands, err)
		}
		publisher, mqttStatus = p, p
	}

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), status.Config{
		PollMs:      o.poll.Milliseconds(),
		DebounceMs:  o.debounce.Milliseconds(),
		HeartbeatMs: o.heartbeat.Milliseconds(),
		Broker:      o.broker,
		HTTPAddr:    o.httpAddr,
		GPIOChip:    o.gpioChip,
		Durations:   plan.Durations,
	})
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}
	if mqttStatus != nil {
		tracker.SetMQTTConnected(mqttStatus.IsConnected())
	}

	// Publish startup event with full status snapshot
	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.Printf("failed to publish startup event: %v", err)
	} else {
		log.Printf("published startup event")
	}

	var broadcast func([]byte)
	if o.httpAddr != "" {
		srv := web.New(o.httpAddr, tracker, ctl)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(ctx)
		}()
		broadcast = srv.Broadcast
		log.Printf("http control panel listening on %s", o.httpAddr)
	}

	log.Printf("started: poll=%v debounce=%v broker=%s heartbeat=%v gpio=%q tick=%v",
		o.poll, o.debounce, o.broker, o.heartbeat, o.gpioChip, plan.Timing.Tick)

	if o.autostart {
		ctl.Start()
	}

	ticker := time.NewTicker(o.poll)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(loop{
		ctl:        ctl,
		lamps:      lamps,
		buttons:    buttons,
		publisher:  publisher,
		mqttStatus: mqttStatus,
		tracker:    tracker,
		broadcast:  broadcast,
	}, o.debounce, o.heartbeat, time.Now, sink.Repaints(), sink.Ticks(), ticker.C, sigCh)
}

// signalController is the part of controller.Controller the loop uses.
type signalController interface {
	State() logic.SignalState
	Dispatch(cmd logic.Command)
}

// loop holds runLoop's collaborators. lamps, buttons, mqttStatus, tracker
// and broadcast may be nil.
type loop struct {
	ctl        signalController
	lamps      gpio.Lamps
	buttons    gpio.Buttons
	publisher  mqtt.Publisher
	mqttStatus mqtt.ConnectionStatus
	tracker    *status.Tracker
	broadcast  func([]byte)
}

func runLoop(l loop, debounce, heartbeat time.Duration, now func() time.Time, repaint <-chan struct{}, ticks <-chan int, poll <-chan time.Time, sig <-chan os.Signal) error {
	startTime := now()
	detector := logic.NewDetector(startTime)
	debouncer := logic.NewButtonDebouncer(debounce)

	// Baseline: the signal is dark and stopped until the first Start.
	detector.Process(logic.Input{State: l.ctl.State(), Time: startTime})
	l.publishStatus(l.ctl.State(), detector.EventCountsSnapshot())

	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			event := mqtt.SystemEvent{
				Timestamp: now(),
				Event:     "SHUTDOWN",
				Reason:    signalName,
				Retained:  true,
			}
			if l.tracker != nil {
				if l.mqttStatus != nil {
					l.tracker.SetMQTTConnected(l.mqttStatus.IsConnected())
				}
				snap := l.tracker.Snapshot()
				event.RawPayload = status.FormatStatusEvent(snap, "SHUTDOWN", signalName)
			}
			if err := l.publisher.PublishSystem(event); err != nil {
				log.Printf("failed to publish shutdown event: %v", err)
			} else {
				log.Printf("published shutdown event")
			}
			return nil

		case <-repaint:
			t := now()
			st := l.ctl.State()
			if l.lamps != nil {
				if err := l.lamps.Set(st.Lights); err != nil {
					log.Printf("lamp write error: %v", err)
				}
			}

			events := detector.Process(logic.Input{State: st, Time: t})
			for _, event := range events {
				log.Printf("event: %s (active=%s density=%s mode=%s)", event.Type, event.Active, event.Density, event.Mode)
				if err := l.publisher.Publish(event); err != nil {
					log.Printf("publish error: %v", err)
					// Don't crash on publish failure
				}
			}
			l.publishStatus(st, detector.EventCountsSnapshot())

		case <-ticks:
			l.publishStatus(l.ctl.State(), detector.EventCountsSnapshot())

		case <-poll:
			t := now()
			if l.buttons != nil {
				sample, err := l.buttons.Read()
				if err != nil {
					log.Printf("gpio read error: %v", err)
				} else {
					cmds := debouncer.Process(logic.ButtonInput{
						Start:     sample.Start,
						Stop:      sample.Stop,
						Emergency: sample.Emergency,
						Time:      t,
					})
					for _, cmd := range cmds {
						log.Printf("button: %s", cmd.Action)
						l.ctl.Dispatch(cmd)
					}
				}
			}

			// Check for heartbeat
			if hbData := detector.CheckHeartbeat(t, heartbeat); hbData != nil {
				log.Printf("heartbeat: uptime=%v red=%d yellow=%d green=%d cycles=%d emergencies=%d stops=%d",
					hbData.Uptime, hbData.Counts.Red, hbData.Counts.Yellow, hbData.Counts.Green,
					hbData.Counts.Cycles, hbData.Counts.Emergencies, hbData.Counts.Stops)

				hbEvent := mqtt.SystemEvent{
					Timestamp: hbData.Timestamp,
					Event:     "HEARTBEAT",
				}
				if l.tracker != nil {
					if l.mqttStatus != nil {
						l.tracker.SetMQTTConnected(l.mqttStatus.IsConnected())
					}
					// Refresh network info for heartbeat
					if net := readNetworkInfo(); net != nil {
						l.tracker.SetNetwork(net)
					}
					l.tracker.Update(l.ctl.State(), hbData.Counts)
					snap := l.tracker.Snapshot()
					hbEvent.RawPayload = status.FormatStatusEvent(snap, "HEARTBEAT", "")
				}
				if err := l.publisher.PublishSystem(hbEvent); err != nil {
					log.Printf("heartbeat publish error: %v", err)
				}
			}
		}
	}
}

// publishStatus updates the tracker and pushes the snapshot to live clients.
func (l loop) publishStatus(st logic.SignalState, counts logic.EventCounts) {
	if l.tracker == nil {
		return
	}
	l.tracker.Update(st, counts)
	if l.mqttStatus != nil {
		l.tracker.SetMQTTConnected(l.mqttStatus.IsConnected())
	}
	if l.broadcast != nil {
		l.broadcast(status.FormatCompactJSON(l.tracker.Snapshot()))
	}
}

func renderFile(path string, st logic.SignalState) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := render.Signal(f, st); err != nil {
		f.Close()
		return fmt.Errorf("render signal: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	fmt.Printf("wrote %s\n", path)
	return nil
}

// discardPublisher stands in when MQTT is disabled.
type discardPublisher struct{}

func (discardPublisher) Publish(logic.Event) error { return nil }
func (discardPublisher) PublishSystem(mqtt.SystemEvent) error { return nil }
func (discardPublisher) Close() error { return nil }

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}

// Package config loads the signal plan: slot durations, the initial density
// and the loop periods.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sweeney/traffic-signal/internal/controller"
	"github.com/sweeney/traffic-signal/internal/logic"
	"gopkg.in/yaml.v3"
)

// Plan is the resolved configuration.
type Plan struct {
	Durations      logic.Durations
	InitialDensity logic.Density
	Timing         controller.Timing
}

// Default returns the stock plan.
func Default() Plan {
	return Plan{
		Durations:      logic.DefaultDurations(),
		InitialDensity: logic.DensityMedium,
		Timing:         controller.DefaultTiming(),
	}
}

// file mirrors the YAML layout. Pointers distinguish "absent" from zero.
//
//	durations:
//	  red: 30
//	  yellow: 10
//	  green:
//	    low: 15
//	    medium: 30
//	    high: 50
//	initial_density: MEDIUM
//	timing:
//	  tick: 1s
//	  blink: 500ms
//	  idle: 300ms
type file struct {
	Durations *struct {
		Red    *int `yaml:"red"`
		Yellow *int `yaml:"yellow"`
		Green  *struct {
			Low    *int `yaml:"low"`
			Medium *int `yaml:"medium"`
			High   *int `yaml:"high"`
		} `yaml:"green"`
	} `yaml:"durations"`
	InitialDensity *string `yaml:"initial_density"`
	Timing         *struct {
		Tick  *time.Duration `yaml:"tick"`
		Blink *time.Duration `yaml:"blink"`
		Idle  *time.Duration `yaml:"idle"`
	} `yaml:"timing"`
}

// Load reads a plan file. An empty path returns the default plan.
func Load(path string) (Plan, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Plan{}, fmt.Errorf("read config: %w", err)
	}
	p, err := Parse(data)
	if err != nil {
		return Plan{}, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// Parse decodes a YAML plan over the defaults. Unknown keys are rejected.
func Parse(data []byte) (Plan, error) {
	var f file
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return Plan{}, fmt.Errorf("decode config: %w", err)
	}

	p := Default()
	if d := f.Durations; d != nil {
		setInt(&p.Durations.Red, d.Red)
		setInt(&p.Durations.Yellow, d.Yellow)
		if g := d.Green; g != nil {
			setGreen(p.Durations.Green, logic.DensityLow, g.Low)
			setGreen(p.Durations.Green, logic.DensityMedium, g.Medium)
			setGreen(p.Durations.Green, logic.DensityHigh, g.High)
		}
	}
	if f.InitialDensity != nil {
		d, err := logic.ParseDensity(*f.InitialDensity)
		if err != nil {
			return Plan{}, fmt.Errorf("initial_density: %w", err)
		}
		p.InitialDensity = d
	}
	if t := f.Timing; t != nil {
		setDuration(&p.Timing.Tick, t.Tick)
		setDuration(&p.Timing.Blink, t.Blink)
		setDuration(&p.Timing.Idle, t.Idle)
	}

	if err := p.Validate(); err != nil {
		return Plan{}, err
	}
	return p, nil
}

// Validate checks that every duration and period is positive.
func (p Plan) Validate() error {
	var errs []error
	if p.Durations.Red <= 0 {
		errs = append(errs, fmt.Errorf("durations.red must be positive, got %d", p.Durations.Red))
	}
	if p.Durations.Yellow <= 0 {
		errs = append(errs, fmt.Errorf("durations.yellow must be positive, got %d", p.Durations.Yellow))
	}
	for _, d := range logic.Densities {
		if secs := p.Durations.Green[d]; secs <= 0 {
			errs = append(errs, fmt.Errorf("durations.green.%s must be positive, got %d", d, secs))
		}
	}
	for _, t := range []struct {
		name string
		d    time.Duration
	}{
		{"timing.tick", p.Timing.Tick},
		{"timing.blink", p.Timing.Blink},
		{"timing.idle", p.Timing.Idle},
	} {
		if t.d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", t.name, t.d))
		}
	}
	return errors.Join(errs...)
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setGreen(m map[logic.Density]int, d logic.Density, v *int) {
	if v != nil {
		m[d] = *v
	}
}

func setDuration(dst *time.Duration, v *time.Duration) {
	if v != nil {
		*dst = *v
	}
}

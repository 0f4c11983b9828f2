package main

import (
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/vango-dev/framehook/internal/errors"
	"github.com/vango-dev/framehook/pkg/frame"
)

// demoConsumer is one attached demo counter.
type demoConsumer struct {
	name   string
	handle *frame.Handle[int64]

	notifications atomic.Int64
	last          atomic.Int64
}

// demo holds the consumers attached by the run command.
type demo struct {
	consumers []*demoConsumer
}

// attachDemo attaches n consumers to reg. Even consumers count frames and
// notify on every frame; odd ones track floor(frames/2) and notify on
// every other frame.
func attachDemo(reg *frame.Registry, n int, logger *slog.Logger) (*demo, error) {
	d := &demo{}
	for i := 0; i < n; i++ {
		dc := &demoConsumer{}

		var frames int64
		var fn frame.TrackedFunc[int64]
		if i%2 == 0 {
			dc.name = fmt.Sprintf("counter-%d", i)
			fn = func() int64 { frames++; return frames }
		} else {
			dc.name = fmt.Sprintf("half-%d", i)
			fn = func() int64 { frames++; return frames / 2 }
		}

		h, err := frame.Attach(reg, fn)
		if err != nil {
			d.Close()
			return nil, errors.New("FH120").WithDetailf("attaching %s", dc.name).Wrap(err)
		}
		dc.handle = h

		name := dc.name
		_, err = h.AddListener(func(v int64, prev frame.Previous[int64]) {
			dc.notifications.Add(1)
			dc.last.Store(v)
			logger.Debug("listener fired", "consumer", name, "value", v, "previous", prev.Value, "first", !prev.Valid)
		})
		if err != nil {
			h.Close()
			d.Close()
			return nil, errors.New("FH121").WithDetailf("listening to %s", dc.name).Wrap(err)
		}
		d.consumers = append(d.consumers, dc)
	}
	return d, nil
}

// Close detaches every consumer.
func (d *demo) Close() {
	for _, dc := range d.consumers {
		dc.handle.Close()
	}
}

// Package framehook wires a frame registry to a real-time host together
// with its metrics, tracing, frame recording and live stats stream.
//
// Most programs build one Runtime and attach consumers to its registry:
//
//	rt, err := framehook.New(framehook.DefaultConfig())
//	if err != nil {
//	    return err
//	}
//	defer rt.Close()
//
//	h, err := frame.Attach(rt.Registry(), func() int { return scroll.Offset() })
//	if err != nil {
//	    return err
//	}
//	defer h.Close()
//	h.AddListener(func(offset int, prev frame.Previous[int]) {
//	    render(offset)
//	})
//
// The frame package can also be used on its own with any frame.Host.
package framehook

import "errors"

// Version is the framehook release.
const Version = "0.3.0"

// ErrInvalidConfig is returned by Config.Validate and New for out of range
// settings. The wrapping error names the field.
var ErrInvalidConfig = errors.New("framehook: invalid config")

// Package host provides frame.Host implementations.
//
// Ticker drives frames from a time.Ticker and is what applications use.
// Manual runs frames only when told to, which makes it the host for tests
// and for embedding the registry into a loop that already exists:
//
//	h := host.NewManual()
//	reg := frame.NewRegistry(h)
//	for running {
//	    pollInput()
//	    h.Step()  // evaluate frame consumers
//	    draw()
//	}
package host

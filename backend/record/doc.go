// Package record provides an in-memory rq.Device.
//
// The device traces every executor call as a Call and decodes indirect
// draws from the CPU shadow of the bound descriptor buffer, the same way a
// backend without GPU-side indirect draws would. It backs tests, the
// rqbench tool and headless frame capture.
//
// Importing the package registers the "record" backend:
//
//	import _ "github.com/gogpu/rq/backend/record"
package record

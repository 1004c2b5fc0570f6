// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Error definitions for the concurrency package.

package concurrency

import "errors"

// ErrQueueFull indicates a bounded queue rejected an enqueue.
var ErrQueueFull = errors.New("concurrency: queue is full")

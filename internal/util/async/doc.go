// Package async provides a bounded worker pool.
//
// [RunWorkers] queues every item up front and starts a fixed number of
// workers that pull from the queue until it is empty. The pool size is the
// admission limit on concurrent work.
package async

// Package service contains the application use cases that sit between the
// HTTP layer and the task engine. GenerationService is the producer: it
// prices a batch against the principal's balance, clips it to what is
// affordable and enqueues it. ProfileService reads balances and plan data
// and publishes them to realtime observers.
//
// Services receive their stores, ledger and queues through constructor
// injection and return sentinel errors that the API layer maps to status
// codes.
package service

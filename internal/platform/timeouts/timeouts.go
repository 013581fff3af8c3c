// Package timeouts defines shared timeout constants used across services.
// Centralizing these values prevents drift between service boundaries and
// makes the durations discoverable.
package timeouts

import "time"

// ReadHeader limits how long an HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// Shutdown limits how long an HTTP server waits for in-flight requests
// during graceful shutdown.
const Shutdown = 5 * time.Second

// TerminateGrace is how long a supervised child process has to exit after
// SIGTERM before it is killed.
const TerminateGrace = 10 * time.Second

// ReadyWait caps how long the gateway waits for a replica to pass its
// readiness probe after launch.
const ReadyWait = 30 * time.Second

// ReadyPoll is the interval between readiness probe attempts.
const ReadyPoll = 250 * time.Millisecond

// TaskRun caps a single workflow task unless the task declares its own
// deadline.
const TaskRun = 5 * time.Minute

// ScenarioRequest caps a single HTTP step inside a smoke-check scenario.
const ScenarioRequest = 10 * time.Second

// CaptionRequest caps a remote image captioning call before the classifier
// falls back to local description.
const CaptionRequest = 10 * time.Second

// ScrapeFetch caps fetching a remote page or image during scraping.
const ScrapeFetch = 10 * time.Second

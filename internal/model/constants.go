package model

import "time"

const DefaultTimeout = 500 * time.Millisecond
const DefaultWorkerCountMultiplier = 8
const DefaultRequestCount = 100500
const DefaultChannelCapacity = 64
const WatcherTickTimeout = 2 * time.Second

const HeaderContentType = "Content-Type"
const HeaderRetryAfter = "Retry-After"

const KeyLoggerError = "error"

type ContextKey string

const KeyContextLogger ContextKey = "logger"

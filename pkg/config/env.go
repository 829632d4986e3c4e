package config

const (
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"

	EnvRateLimitRequests = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow   = "RATE_LIMIT_WINDOW"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvLeaseTTL          = "LEASE_TTL"
	EnvRefundWindow      = "REFUND_WINDOW"
	EnvReconcileInterval = "RECONCILE_INTERVAL"
	EnvExpiryCron        = "EXPIRY_CRON"

	EnvKafkaEnabled          = "KAFKA_ENABLED"
	EnvBookingEventsTopic    = "BOOKING_EVENTS_TOPIC"
	EnvBookingEventsDLQTopic = "BOOKING_EVENTS_DLQ_TOPIC"
	EnvReconcilerGroupID     = "RECONCILER_GROUP_ID"

	EnvPaymentProvider    = "PAYMENT_PROVIDER"
	EnvMidtransServerKey  = "MIDTRANS_SERVER_KEY"
	EnvMidtransProduction = "MIDTRANS_PRODUCTION"
	EnvMockPaymentDecline = "MOCK_PAYMENT_DECLINE"
)

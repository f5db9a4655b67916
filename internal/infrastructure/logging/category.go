package logging

type Category string
type SubCategory string
type ExtraKey string

const (
	General         Category = "General"
	IO              Category = "IO"
	Internal        Category = "Internal"
	Mongo           Category = "Mongo"
	Redis           Category = "Redis"
	RabbitMQ        Category = "RabbitMQ"
	Validation      Category = "Validation"
	RequestResponse Category = "RequestResponse"
	Prometheus      Category = "Prometheus"
)

const (
	// General
	Startup         SubCategory = "Startup"
	Shutdown        SubCategory = "Shutdown"
	RateLimiting    SubCategory = "RateLimiting"
	ExternalService SubCategory = "ExternalService"

	// Internal
	Pairing SubCategory = "Pairing"
	Relay   SubCategory = "Relay"
	Sweep   SubCategory = "Sweep"
	Archive SubCategory = "Archive"
)

const (
	AppName      ExtraKey = "AppName"
	LoggerName   ExtraKey = "Logger"
	ClientIp     ExtraKey = "ClientIp"
	Method       ExtraKey = "Method"
	StatusCode   ExtraKey = "StatusCode"
	Path         ExtraKey = "Path"
	Latency      ExtraKey = "Latency"
	SessionID    ExtraKey = "SessionID"
	RoomID       ExtraKey = "RoomID"
	UserID       ExtraKey = "UserID"
	Topic        ExtraKey = "Topic"
	ErrorMessage ExtraKey = "ErrorMessage"
)

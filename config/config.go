// Package config loads the inference service's settings from environment
// variables, following a LoadEnvironment / per-subsystem loadXConfig shape
// (loadModelConfig, loadPublisherConfig, loadConsumerConfig, ...) with
// environment-variable overrides and sane defaults per subsystem.
package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// IsDevelopmentMode reports whether APP_ENV is "development".
func IsDevelopmentMode() bool {
	return strings.ToLower(os.Getenv("APP_ENV")) == "development"
}

// LoadEnvironment loads a .env file if present, continuing without one
// otherwise. Call once from main's init.
func LoadEnvironment() {
	if err := godotenv.Load(); err != nil {
		log.Println("running without .env file, using environment variables")
	} else {
		log.Println("environment variables loaded from .env file")
	}
}

// ModelConfig configures the detector.
type ModelConfig struct {
	PPEModelPath        string
	PPEModelType        string // "yolo" or "onnx"
	Device              string
	ConfidenceThreshold float64
	IOUThreshold        float64
	MaxDetections       int
	BatchSize           int
	BatchTimeoutMs      int
	HalfPrecision       bool
	GPUMemoryFraction   float64
}

// BrokerConfig holds the connection settings shared by the publisher,
// alert publisher, and consumer — mirroring the configuration contract's
// shared broker/security/SASL option set.
type BrokerConfig struct {
	BootstrapServers string
	SecurityProtocol string // PLAINTEXT, SSL, SASL_PLAINTEXT, SASL_SSL
	SASLMechanism    string // PLAIN, SCRAM-SHA-256, SCRAM-SHA-512, OAUTHBEARER
	Retries          int
	RetryBackoffMs   int
	RequestTimeoutMs int
}

// PublisherConfig configures the detection-event publisher.
type PublisherConfig struct {
	Broker            BrokerConfig
	Topic             string
	MaxPending        int64
	Acks              string
	CompressionType   string
	LingerMs          int
	EnableIdempotence bool
	FlushTimeout      time.Duration
}

// AlertPublisherConfig configures the alert publisher.
type AlertPublisherConfig struct {
	Broker     BrokerConfig
	Topic      string
	AckTimeout time.Duration
}

// ConsumerConfig configures the frame-ingest consumer.
type ConsumerConfig struct {
	Broker            BrokerConfig
	GroupID           string
	Topics            []string
	DLQTopic          string
	AutoOffsetReset   string
	AutoCommit        bool
	SessionTimeoutMs  int
	HeartbeatMs       int
	MaxPollIntervalMs int
	MaxPollRecords    int
}

// ServerConfig holds the ambient bind-address and logging settings.
type ServerConfig struct {
	HTTPAddr      string
	GRPCAddr      string
	MetricsAddr   string
	LogLevel      string
	LogFormat     string
	ShutdownGrace time.Duration
}

// Config is the fully assembled settings object; cmd/server reads its
// fields to build each component.
type Config struct {
	Model     ModelConfig
	Publisher PublisherConfig
	Alert     AlertPublisherConfig
	Consumer  ConsumerConfig
	Server    ServerConfig
}

// Load assembles Config from the process environment.
func Load() Config {
	return Config{
		Model:     loadModelConfig(),
		Publisher: loadPublisherConfig(),
		Alert:     loadAlertConfig(),
		Consumer:  loadConsumerConfig(),
		Server:    loadServerConfig(),
	}
}

func loadBrokerConfig(prefix string) BrokerConfig {
	cfg := BrokerConfig{
		BootstrapServers: getenv(prefix+"_BOOTSTRAP_SERVERS", getenv("KAFKA_BOOTSTRAP_SERVERS", "localhost:9092")),
		SecurityProtocol: getenv(prefix+"_SECURITY_PROTOCOL", getenv("KAFKA_SECURITY_PROTOCOL", "PLAINTEXT")),
		SASLMechanism:    getenv(prefix+"_SASL_MECHANISM", getenv("KAFKA_SASL_MECHANISM", "")),
		Retries:          getenvInt(prefix+"_RETRIES", 10),
		RetryBackoffMs:   getenvInt(prefix+"_RETRY_BACKOFF_MS", 500),
		RequestTimeoutMs: getenvInt(prefix+"_REQUEST_TIMEOUT_MS", 30000),
	}
	return cfg
}

func loadModelConfig() ModelConfig {
	return ModelConfig{
		PPEModelPath:        getenv("MODEL_PPE_MODEL_PATH", "/models/ppe-detector.onnx"),
		PPEModelType:        getenv("MODEL_PPE_MODEL_TYPE", "onnx"),
		Device:              getenv("MODEL_DEVICE", "cpu"),
		ConfidenceThreshold: getenvFloat("MODEL_CONFIDENCE_THRESHOLD", 0.5),
		IOUThreshold:        getenvFloat("MODEL_IOU_THRESHOLD", 0.45),
		MaxDetections:       getenvInt("MODEL_MAX_DETECTIONS", 100),
		BatchSize:           getenvInt("MODEL_BATCH_SIZE", 8),
		BatchTimeoutMs:      getenvInt("MODEL_BATCH_TIMEOUT_MS", 50),
		HalfPrecision:       getenvBool("MODEL_HALF_PRECISION", false),
		GPUMemoryFraction:   getenvFloat("MODEL_GPU_MEMORY_FRACTION", 0.8),
	}
}

func loadPublisherConfig() PublisherConfig {
	return PublisherConfig{
		Broker:            loadBrokerConfig("PUBLISHER"),
		Topic:             getenv("PUBLISHER_TOPIC", "detections"),
		MaxPending:        int64(getenvInt("PUBLISHER_MAX_PENDING", 1000)),
		Acks:              getenv("PUBLISHER_ACKS", "all"),
		CompressionType:   getenv("PUBLISHER_COMPRESSION_TYPE", "snappy"),
		LingerMs:          getenvInt("PUBLISHER_LINGER_MS", 5),
		EnableIdempotence: getenvBool("PUBLISHER_ENABLE_IDEMPOTENCE", true),
		FlushTimeout:      time.Duration(getenvInt("PUBLISHER_FLUSH_TIMEOUT_MS", 10000)) * time.Millisecond,
	}
}

func loadAlertConfig() AlertPublisherConfig {
	return AlertPublisherConfig{
		Broker:     loadBrokerConfig("ALERT"),
		Topic:      getenv("ALERT_TOPIC", "alerts"),
		AckTimeout: time.Duration(getenvInt("ALERT_ACK_TIMEOUT_MS", 5000)) * time.Millisecond,
	}
}

func loadConsumerConfig() ConsumerConfig {
	topics := strings.Split(getenv("CONSUMER_TOPICS", "frames"), ",")
	for i := range topics {
		topics[i] = strings.TrimSpace(topics[i])
	}
	return ConsumerConfig{
		Broker:            loadBrokerConfig("CONSUMER"),
		GroupID:           getenv("CONSUMER_GROUP_ID", "ppe-inference-service"),
		Topics:            topics,
		DLQTopic:          getenv("CONSUMER_DLQ_TOPIC", "dead-letter-queue"),
		AutoOffsetReset:   getenv("CONSUMER_AUTO_OFFSET_RESET", "earliest"),
		AutoCommit:        getenvBool("CONSUMER_AUTO_COMMIT", false),
		SessionTimeoutMs:  getenvInt("CONSUMER_SESSION_TIMEOUT_MS", 45000),
		HeartbeatMs:       getenvInt("CONSUMER_HEARTBEAT_MS", 15000),
		MaxPollIntervalMs: getenvInt("CONSUMER_MAX_POLL_INTERVAL_MS", 300000),
		MaxPollRecords:    getenvInt("CONSUMER_MAX_POLL_RECORDS", 500),
	}
}

func loadServerConfig() ServerConfig {
	isDev := IsDevelopmentMode()
	defaultLevel := "info"
	if isDev {
		defaultLevel = "debug"
	}
	return ServerConfig{
		HTTPAddr:      getenv("SERVER_HTTP_ADDR", ":8080"),
		GRPCAddr:      getenv("SERVER_GRPC_ADDR", ":50051"),
		MetricsAddr:   getenv("SERVER_METRICS_ADDR", ""),
		LogLevel:      getenv("SERVER_LOG_LEVEL", defaultLevel),
		LogFormat:     getenv("SERVER_LOG_FORMAT", "json"),
		ShutdownGrace: time.Duration(getenvInt("SERVER_SHUTDOWN_GRACE_MS", 5000)) * time.Millisecond,
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func getenvFloat(key string, fallback float64) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return v
}

func getenvBool(key string, fallback bool) bool {
	raw := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch raw {
	case "true":
		return true
	case "false":
		return false
	default:
		return fallback
	}
}

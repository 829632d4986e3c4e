package kafka_config

import (
	"strings"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv(EnvKafkaBrokers, " broker-1:9092 , ,broker-2:9092")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(cfg.Brokers) != 2 || cfg.Brokers[0] != "broker-1:9092" || cfg.Brokers[1] != "broker-2:9092" {
		t.Errorf("Brokers = %v", cfg.Brokers)
	}
	if cfg.ConsumerStartOffset != DefaultConsumerStartOffset {
		t.Errorf("ConsumerStartOffset = %d, want %d", cfg.ConsumerStartOffset, DefaultConsumerStartOffset)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Brokers:                   []string{"localhost:9092"},
			ProducerMaxAttempts:       3,
			ProducerBatchTimeout:      DefaultProducerBatchTimeout,
			ProducerRequireAcks:       -1,
			ProducerCompression:       "snappy",
			ConsumerStartOffset:       -2,
			ConsumerMinBytes:          1,
			ConsumerMaxBytes:          1024,
			ConsumerMaxWait:           DefaultConsumerMaxWait,
			ConsumerHeartbeatInterval: DefaultConsumerHeartbeatInterval,
			ConsumerSessionTimeout:    DefaultConsumerSessionTimeout,
			ConsumerRebalanceTimeout:  DefaultConsumerRebalanceTimeout,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"no brokers", func(c *Config) { c.Brokers = nil }, "At least one Kafka broker"},
		{"bad compression", func(c *Config) { c.ProducerCompression = "brotli" }, "ProducerCompression"},
		{"bad acks", func(c *Config) { c.ProducerRequireAcks = 2 }, "ProducerRequireAcks"},
		{"bad offset", func(c *Config) { c.ConsumerStartOffset = -3 }, "ConsumerStartOffset"},
		{"min over max", func(c *Config) { c.ConsumerMinBytes = 2048 }, "ConsumerMinBytes"},
		{"negative retries", func(c *Config) { c.ConsumerMaxRetries = -1 }, "ConsumerMaxRetries"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

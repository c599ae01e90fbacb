package config

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
)

type Configs struct {
	Env string `toml:"env"`

	Database  DatabaseConfigs `toml:"database"`
	ApiServer ServerConfigs   `toml:"api_server"`
	Redis     RedisConfigs    `toml:"redis"`
	Kafka     KafkaConfigs    `toml:"kafka"`
	Auction   AuctionConfigs  `toml:"auction"`
}

type DatabaseConfigs struct {
	Host     string `toml:"host"`
	Port     string `toml:"port"`
	Database string `toml:"database"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	LogLevel string `toml:"log_level"`
}

func (d *DatabaseConfigs) ConnectionString() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		d.User,
		d.Password,
		d.Host,
		d.Port,
		d.Database,
	)
}

type ServerConfigs struct {
	Host string `toml:"host"`
	Port string `toml:"port"`
	Cert string `toml:"cert"`
	Key  string `toml:"key"`
}

type RedisConfigs struct {
	Addr string `toml:"addr"`
}

type KafkaConfigs struct {
	Addr            string `toml:"addr"`
	SettlementTopic string `toml:"settlement_topic"`
	ConsumerGroup   string `toml:"consumer_group"`
}

type AuctionConfigs struct {
	// Anti-sniping applies to the first round only. A bid arriving within
	// SnipingThreshold of the round end extends the round by
	// SnipingExtension.
	SnipingThreshold time.Duration `toml:"sniping_threshold"`
	SnipingExtension time.Duration `toml:"sniping_extension"`

	ScheduleInterval time.Duration `toml:"schedule_interval"`

	RefundBatchSize  int           `toml:"refund_batch_size"`
	RefundBatchDelay time.Duration `toml:"refund_batch_delay"`

	CurrentCacheTTL     time.Duration `toml:"current_cache_ttl"`
	LeaderboardCacheTTL time.Duration `toml:"leaderboard_cache_ttl"`
	LeaderboardLimit    int           `toml:"leaderboard_limit"`

	RaiseRetryLimit int `toml:"raise_retry_limit"`
}

func Load(path string) (Configs, error) {
	configs := Default()
	if path == "" {
		return configs, nil
	}

	if _, err := toml.DecodeFile(path, &configs); err != nil {
		return Configs{}, err
	}

	return configs, nil
}

func Default() Configs {
	return Configs{
		Env: "local",
		Database: DatabaseConfigs{
			Host:     "localhost",
			Port:     "3306",
			Database: "auction",
			User:     "root",
		},
		ApiServer: ServerConfigs{Port: "8080"},
		Redis:     RedisConfigs{Addr: "localhost:6379"},
		Kafka: KafkaConfigs{
			Addr:            "localhost:9092",
			SettlementTopic: "settlement",
			ConsumerGroup:   "settlement-worker",
		},
		Auction: AuctionConfigs{
			SnipingThreshold:    10 * time.Second,
			SnipingExtension:    30 * time.Second,
			ScheduleInterval:    10 * time.Second,
			RefundBatchSize:     50,
			RefundBatchDelay:    100 * time.Millisecond,
			CurrentCacheTTL:     5 * time.Second,
			LeaderboardCacheTTL: 2 * time.Second,
			LeaderboardLimit:    50,
			RaiseRetryLimit:     3,
		},
	}
}

package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server       ServerConfig
	Corpus       CorpusConfig
	Index        IndexConfig
	LLM          LLMConfig
	Chat         ChatConfig
	Conversation ConversationConfig
	Insights     InsightsConfig
	Evaluation   EvaluationConfig
	Redis        RedisConfig
	RateLimit    RateLimitConfig
	Logging      LoggingConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  int
	WriteTimeout int
	BodyLimit    int
}

type CorpusConfig struct {
	Dir string
}

type IndexConfig struct {
	SentencesPerChunk int
	OverlapSentences  int
	TopK              int
	EmbedBatchSize    int
}

type LLMConfig struct {
	APIKey         string
	Model          string
	EmbeddingModel string
	Temperature    float32
	MaxTokens      int
	TimeoutSec     int
	SystemPrompt   string
}

type ChatConfig struct {
	Greeting string
}

type ConversationConfig struct {
	Backend    string
	CSVPath    string
	SQLitePath string
}

type InsightsConfig struct {
	Enabled bool
	DataDir string
}

type EvaluationConfig struct {
	Enabled bool
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type RateLimitConfig struct {
	RequestsPerMinute int
}

type LoggingConfig struct {
	Level      string
	Format     string
	OutputPath string
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/docsight")

	viper.SetEnvPrefix("DOCSIGHT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.readTimeout", 30)
	viper.SetDefault("server.writeTimeout", 60)
	viper.SetDefault("server.bodyLimit", 1048576)

	viper.SetDefault("corpus.dir", "./data/docs")

	viper.SetDefault("index.sentencesPerChunk", 5)
	viper.SetDefault("index.overlapSentences", 1)
	viper.SetDefault("index.topK", 4)
	viper.SetDefault("index.embedBatchSize", 64)

	viper.SetDefault("llm.model", "gpt-3.5-turbo")
	viper.SetDefault("llm.embeddingModel", "text-embedding-3-small")
	viper.SetDefault("llm.temperature", 0.5)
	viper.SetDefault("llm.maxTokens", 1024)
	viper.SetDefault("llm.timeoutSec", 60)
	viper.SetDefault("llm.systemPrompt",
		"You are an expert assistant and your job is to answer technical questions. "+
			"Keep your answers technical and based on facts from the provided context - do not hallucinate features.")

	viper.SetDefault("chat.greeting", "Data Insight Assistant ! 🦾. Ask me anything.")

	viper.SetDefault("conversation.backend", "csv")
	viper.SetDefault("conversation.csvPath", "./conversations/conversations.csv")
	viper.SetDefault("conversation.sqlitePath", "./data/conversations.db")

	viper.SetDefault("insights.enabled", true)
	viper.SetDefault("insights.dataDir", "./data/metrics")

	viper.SetDefault("evaluation.enabled", false)

	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.db", 0)

	viper.SetDefault("ratelimit.requestsPerMinute", 60)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.outputPath", "stdout")
}

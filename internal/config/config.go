// Package config 负责加载和管理应用程序的配置。
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// 全局配置变量，存储从配置文件加载的所有设置。
var Conf Config

// Config 是整个应用程序的配置结构体，与 config.yaml 文件结构对应。
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	JWT           JWTConfig           `mapstructure:"jwt"`
	Log           LogConfig           `mapstructure:"log"`
	Kafka         KafkaConfig         `mapstructure:"kafka"`
	Tika          TikaConfig          `mapstructure:"tika"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	MinIO         MinIOConfig         `mapstructure:"minio"`
	Embedding     EmbeddingConfig     `mapstructure:"embedding"`
	LLM           LLMConfig           `mapstructure:"llm"`
	Retrieval     RetrievalConfig     `mapstructure:"retrieval"`
	Confidence    ConfidenceConfig    `mapstructure:"confidence"`
}

// ServerConfig 存储服务器相关的配置。
type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

// DatabaseConfig 存储所有数据库连接的配置。
type DatabaseConfig struct {
	MySQL MySQLConfig `mapstructure:"mysql"`
	Redis RedisConfig `mapstructure:"redis"`
}

// MySQLConfig 存储 MySQL 数据库的配置。
type MySQLConfig struct {
	DSN string `mapstructure:"dsn"`
}

// RedisConfig 存储 Redis 的配置。
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// JWTConfig 存储 JWT 相关的配置。
type JWTConfig struct {
	Secret                 string `mapstructure:"secret"`
	AccessTokenExpireHours int    `mapstructure:"access_token_expire_hours"`
	RefreshTokenExpireDays int    `mapstructure:"refresh_token_expire_days"`
}

// LogConfig 存储日志相关的配置。
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// KafkaConfig 存储 Kafka 相关的配置。
type KafkaConfig struct {
	Brokers string `mapstructure:"brokers"`
	Topic   string `mapstructure:"topic"`
}

// TikaConfig 存储 Tika 服务器相关的配置。
type TikaConfig struct {
	ServerURL string `mapstructure:"server_url"`
}

// ElasticsearchConfig 存储 Elasticsearch 相关的配置。
type ElasticsearchConfig struct {
	Addresses string `mapstructure:"addresses"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
	IndexName string `mapstructure:"index_name"`
}

// MinIOConfig 存储 MinIO 对象存储的配置。
type MinIOConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	BucketName      string `mapstructure:"bucket_name"`
}

// EmbeddingConfig 存储 Embedding 模型相关的配置。
// BatchSize 限制单次批量向量化的文本数量（上游接口上限为 100），
// BatchDelayMs 是批与批之间的间隔毫秒数，用于规避上游限流。
type EmbeddingConfig struct {
	APIKey       string `mapstructure:"api_key"`
	BaseURL      string `mapstructure:"base_url"`
	Model        string `mapstructure:"model"`
	Dimensions   int    `mapstructure:"dimensions"`
	BatchSize    int    `mapstructure:"batch_size"`
	BatchDelayMs int    `mapstructure:"batch_delay_ms"`
}

// LLMConfig 存储大语言模型相关的配置。
type LLMConfig struct {
	APIKey     string              `mapstructure:"api_key"`
	BaseURL    string              `mapstructure:"base_url"`
	Model      string              `mapstructure:"model"`
	Generation LLMGenerationConfig `mapstructure:"generation"`
}

// LLMGenerationConfig 配置生成相关参数（可选）。
type LLMGenerationConfig struct {
	Temperature float64 `mapstructure:"temperature"`
	TopP        float64 `mapstructure:"top_p"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

// RetrievalConfig 存储检索相关的默认参数。
type RetrievalConfig struct {
	TopK     int     `mapstructure:"top_k"`
	MinScore float64 `mapstructure:"min_score"`
}

// ConfidenceConfig 存储置信度打分的全部权重和阈值。
// 这些数值是经验值，没有推导依据，因此全部作为命名配置项暴露，而不是内联在代码中。
type ConfidenceConfig struct {
	MinGeneration int `mapstructure:"min_generation"` // 检索置信度放行生成的阈值
	MinDisplay    int `mapstructure:"min_display"`    // 生成置信度直接展示的阈值

	Retrieval  RetrievalWeights  `mapstructure:"retrieval_weights"`
	Generation GenerationWeights `mapstructure:"generation_weights"`
	Parse      ParseWeights      `mapstructure:"parse_weights"`
}

// RetrievalWeights 是检索置信度各分量的权重。
type RetrievalWeights struct {
	Similarity         float64 `mapstructure:"similarity"`
	ChunkQuantity      float64 `mapstructure:"chunk_quantity"`
	DocumentRecency    float64 `mapstructure:"document_recency"`
	SourceParseQuality float64 `mapstructure:"source_parse_quality"`
}

// GenerationWeights 是生成置信度各分量的权重。
type GenerationWeights struct {
	SourceRelevance  float64 `mapstructure:"source_relevance"`
	QueryCoverage    float64 `mapstructure:"query_coverage"`
	FactVerification float64 `mapstructure:"fact_verification"`
}

// ParseWeights 是解析置信度各分量的权重。
type ParseWeights struct {
	TextCompleteness      float64 `mapstructure:"text_completeness"`
	StructurePreservation float64 `mapstructure:"structure_preservation"`
	DateExtraction        float64 `mapstructure:"date_extraction"`
	EntityExtraction      float64 `mapstructure:"entity_extraction"`
}

// DefaultConfidence 返回置信度打分的默认权重和阈值。
// 配置文件缺省对应字段时使用这些缺省值。
func DefaultConfidence() ConfidenceConfig {
	return ConfidenceConfig{
		MinGeneration: 60,
		MinDisplay:    50,
		Retrieval: RetrievalWeights{
			Similarity:         0.50,
			ChunkQuantity:      0.20,
			DocumentRecency:    0.15,
			SourceParseQuality: 0.15,
		},
		Generation: GenerationWeights{
			SourceRelevance:  0.40,
			QueryCoverage:    0.30,
			FactVerification: 0.30,
		},
		Parse: ParseWeights{
			TextCompleteness:      0.40,
			StructurePreservation: 0.20,
			DateExtraction:        0.25,
			EntityExtraction:      0.15,
		},
	}
}

// applyDefaults 为零值字段补上缺省配置。
func applyDefaults(c *Config) {
	def := DefaultConfidence()
	if c.Confidence.MinGeneration == 0 {
		c.Confidence.MinGeneration = def.MinGeneration
	}
	if c.Confidence.MinDisplay == 0 {
		c.Confidence.MinDisplay = def.MinDisplay
	}
	if c.Confidence.Retrieval == (RetrievalWeights{}) {
		c.Confidence.Retrieval = def.Retrieval
	}
	if c.Confidence.Generation == (GenerationWeights{}) {
		c.Confidence.Generation = def.Generation
	}
	if c.Confidence.Parse == (ParseWeights{}) {
		c.Confidence.Parse = def.Parse
	}
	if c.Retrieval.TopK == 0 {
		c.Retrieval.TopK = 10
	}
	if c.Retrieval.MinScore == 0 {
		c.Retrieval.MinScore = 0.7
	}
	if c.Embedding.BatchSize == 0 {
		c.Embedding.BatchSize = 100
	}
}

// Init 初始化配置加载，从指定的路径读取 YAML 文件并解析到 Conf 变量中。
func Init(configPath string) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		panic(fmt.Errorf("读取配置文件失败: %w", err))
	}

	if err := viper.Unmarshal(&Conf); err != nil {
		panic(fmt.Errorf("无法将配置解析到结构体中: %w", err))
	}

	applyDefaults(&Conf)
}

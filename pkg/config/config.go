package config

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"strconv"
)

func New() (Config, error) {
	postgresqlPort, err := requireEnvAsInt("DATABASE_PORT")
	if err != nil {
		return Config{}, err
	}

	redisPort, err := requireEnvAsInt("REDIS_PORT")
	if err != nil {
		return Config{}, err
	}

	publicKey, err := requireEnvAsPublicKey("AUTH_PUBLIC_KEY")
	if err != nil {
		return Config{}, err
	}

	basePath, err := requireEnv("BASE_PATH")
	if err != nil {
		return Config{}, err
	}

	postgresqlHost, err := requireEnv("DATABASE_HOST")
	if err != nil {
		return Config{}, err
	}
	postgresqlUsername, err := requireEnv("DATABASE_USERNAME")
	if err != nil {
		return Config{}, err
	}
	postgresqlPassword, err := requireEnv("DATABASE_PASSWORD")
	if err != nil {
		return Config{}, err
	}
	postgresqlName, err := requireEnv("DATABASE_NAME")
	if err != nil {
		return Config{}, err
	}

	redisHost, err := requireEnv("REDIS_HOST")
	if err != nil {
		return Config{}, err
	}

	rabbitMqUrl, err := requireEnv("RABBITMQ_URL")
	if err != nil {
		return Config{}, err
	}

	s3Bucket, err := requireEnv("S3_BUCKET")
	if err != nil {
		return Config{}, err
	}

	adminApiKey, err := requireEnv("ADMIN_API_KEY")
	if err != nil {
		return Config{}, err
	}

	return Config{
		BasePath:    basePath,
		AdminApiKey: adminApiKey,
		AuthKey:     publicKey,
		Postgresql: Postgresql{
			Host:         postgresqlHost,
			Port:         postgresqlPort,
			Username:     postgresqlUsername,
			Password:     postgresqlPassword,
			DatabaseName: postgresqlName,
		},
		Redis: Redis{
			Host: redisHost,
			Port: redisPort,
		},
		RabbitMqURL: rabbitMqUrl,
		S3Bucket:    s3Bucket,
		JaegerURL:   os.Getenv("JAEGER_URL"),
	}, nil
}

type Config struct {
	BasePath    string
	AdminApiKey string
	AuthKey     *rsa.PublicKey
	Postgresql  Postgresql
	Redis       Redis
	RabbitMqURL string
	S3Bucket    string
	JaegerURL   string
}

type Postgresql struct {
	Host         string
	Port         int
	Username     string
	Password     string
	DatabaseName string
}

type Redis struct {
	Host string
	Port int
}

func requireEnv(key string) (string, error) {
	value, exists := os.LookupEnv(key)
	if !exists {
		return "", fmt.Errorf("can't find environment variable: %s", key)
	}
	return value, nil
}

func requireEnvAsInt(key string) (int, error) {
	valueStr, err := requireEnv(key)
	if err != nil {
		return 0, err
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return 0, fmt.Errorf("can't parse %s as integer: %v", key, err)
	}
	return value, nil
}

func requireEnvAsPublicKey(key string) (*rsa.PublicKey, error) {
	value, err := requireEnv(key)
	if err != nil {
		return nil, err
	}

	block, _ := pem.Decode([]byte(value))
	if block == nil {
		return nil, fmt.Errorf("failed to decode PEM block from %s", key)
	}

	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %v", err)
	}

	publicKey, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New("public key isn't an RSA key")
	}
	return publicKey, nil
}

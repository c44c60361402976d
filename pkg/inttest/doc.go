// Package inttest enables writing of integration tests. Setup functions start
// Docker containers for dependencies like PostgreSQL, Redis, RabbitMQ and AWS
// S3 (using localstack), ensure the container is ready before returning,
// clean up after the test and return a client ready to interact with it.
package inttest

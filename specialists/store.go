// Copyright 2025 TripFlow
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package specialists

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	_ "github.com/lib/pq" // PostgreSQL driver
)

// OpenStore connects to the travel booking database. The connection
// string comes from DATABASE_URL, or from AWS Secrets Manager when
// DATABASE_SECRET_ID is set instead. When SEED_BUCKET is configured
// and the schema is absent, the seed SQL snapshot is restored from S3
// first.
func OpenStore(ctx context.Context) (*sql.DB, error) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		secretID := os.Getenv("DATABASE_SECRET_ID")
		if secretID == "" {
			return nil, fmt.Errorf("DATABASE_URL or DATABASE_SECRET_ID must be set")
		}
		resolved, err := resolveSecret(ctx, secretID)
		if err != nil {
			return nil, err
		}
		dsn = resolved
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if bucket := os.Getenv("SEED_BUCKET"); bucket != "" {
		if err := seedFromS3(ctx, db, bucket, getEnvDefault("SEED_KEY", "travel_booking_seed.sql")); err != nil {
			db.Close()
			return nil, err
		}
	}

	return db, nil
}

// resolveSecret fetches the database connection string from AWS
// Secrets Manager.
func resolveSecret(ctx context.Context, secretID string) (string, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := secretsmanager.NewFromConfig(awsCfg)
	out, err := client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(secretID),
	})
	if err != nil {
		return "", fmt.Errorf("failed to fetch database secret %s: %w", secretID, err)
	}
	if out.SecretString == nil {
		return "", fmt.Errorf("database secret %s has no string value", secretID)
	}
	return *out.SecretString, nil
}

// seedFromS3 restores the schema and sample data from an S3 snapshot
// when the database is empty. Already-seeded databases are left alone.
func seedFromS3(ctx context.Context, db *sql.DB, bucket, key string) error {
	var exists bool
	err := db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = 'flights')`).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to inspect schema: %w", err)
	}
	if exists {
		log.Printf("[Store] Schema already present, skipping seed restore")
		return nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg)
	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to fetch seed s3://%s/%s: %w", bucket, key, err)
	}
	defer out.Body.Close()

	script, err := io.ReadAll(out.Body)
	if err != nil {
		return fmt.Errorf("failed to read seed snapshot: %w", err)
	}

	if _, err := db.ExecContext(ctx, string(script)); err != nil {
		return fmt.Errorf("failed to apply seed snapshot: %w", err)
	}

	log.Printf("[Store] Restored seed snapshot from s3://%s/%s (%d bytes)", bucket, key, len(script))
	return nil
}

// getEnvDefault returns an environment variable or a default.
func getEnvDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

package logger

import (
	"context"
	"crawlstats/pkg/config"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// Logger writes the operational log of one ingestion run to a
// temporary file that can be shipped to the bucket afterwards.
type Logger struct {
	mu       sync.Mutex
	logFile  *os.File
	filePath string
	bucket   config.BucketConfig
}

// Create the log instance with a temporary file.
func CreateLogger(bucket config.BucketConfig) (*Logger, error) {
	f, err := os.CreateTemp("", "crawlstats-*.log")
	if err != nil {
		return nil, err
	}

	return &Logger{
		logFile:  f,
		filePath: f.Name(),
		bucket:   bucket,
	}, nil
}

// Log a simple info.
func (l *Logger) Infof(format string, args ...any) {
	l.write("[INFO]", format, args...)
}

// Log a error.
func (l *Logger) Errorf(format string, args ...any) {
	l.write("[ERROR]", format, args...)
}

// Write something to the logger.
func (l *Logger) write(infoType string, format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	line := fmt.Sprintf("%-8s %s %s\n", infoType, timestamp, fmt.Sprintf(format, args...))

	l.logFile.WriteString(line)
}

// Clean the file contents.
func (l *Logger) CleanFile() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.logFile.Truncate(0)
	l.logFile.Seek(0, 0)
}

// Upload the log to the configured s3 bucket.
func (l *Logger) UploadToS3Bucket(ctx context.Context, objectKey string) error {
	if l.bucket.LogBucket == "" {
		// No bucket configured, keep the local file only.
		return nil
	}

	if _, err := l.logFile.Seek(0, 0); err != nil {
		return fmt.Errorf("failed to rewind file: %v", err)
	}

	cfg := aws.Config{
		Region: l.bucket.Region,
		Credentials: aws.NewCredentialsCache(
			credentials.NewStaticCredentialsProvider(
				l.bucket.AccessKey,
				l.bucket.AccessSecret,
				"",
			),
		),
	}

	s3Client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(l.bucket.Endpoint)
	})

	_, err := s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(l.bucket.LogBucket),
		Key:    aws.String(objectKey),
		Body:   l.logFile,
		ACL:    types.ObjectCannedACLPrivate,
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s to S3 bucket: %v", objectKey, err)
	}

	// Clean the file after sending.
	l.CleanFile()

	return nil
}

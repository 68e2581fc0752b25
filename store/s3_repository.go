package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// AwsS3Repository is a writable Repository for a config document kept as an
// object in an S3 bucket.
type AwsS3Repository struct {
	sync.RWMutex             // RWMutex to synchronize access to rawData during refresh
	Name          string     // Name of the configuration source
	BucketName    string     // Name of the S3 bucket
	ObjectName    string     // Key of the config object within the bucket
	Client        *s3.Client // S3 client; lazily created when nil
	rawData       []byte     // Raw bytes of the config document
	clientOnce    sync.Once  // Ensures the client is initialized only once
	clientInitErr error      // Error from lazy client initialization
}

func (a *AwsS3Repository) client(ctx context.Context) (*s3.Client, error) {
	if a.Client == nil {
		a.clientOnce.Do(func() {
			cfg, err := awsconfig.LoadDefaultConfig(ctx)
			if err != nil {
				a.clientInitErr = fmt.Errorf("loading AWS config: %w", err)
				return
			}
			a.Client = s3.NewFromConfig(cfg)
		})
		if a.clientInitErr != nil {
			return nil, a.clientInitErr
		}
	}
	return a.Client, nil
}

// GetName returns the name of the configuration source.
func (a *AwsS3Repository) GetName() string {
	return a.Name
}

// GetRawData returns the raw bytes of the config document.
func (a *AwsS3Repository) GetRawData() []byte {
	a.RLock()
	defer a.RUnlock()
	return a.rawData
}

// Refresh re-reads the config object from the bucket. A missing key is
// reported as ErrNotExist.
func (a *AwsS3Repository) Refresh() error {
	ctx := context.Background()

	client, err := a.client(ctx)
	if err != nil {
		return err
	}

	// Network I/O happens outside the lock.
	result, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.BucketName),
		Key:    aws.String(a.ObjectName),
	})
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return fmt.Errorf("%s/%s: %w", a.BucketName, a.ObjectName, ErrNotExist)
	}
	if err != nil {
		return fmt.Errorf("reading s3://%s/%s: %w", a.BucketName, a.ObjectName, err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return err
	}

	a.Lock()
	a.rawData = data
	a.Unlock()
	return nil
}

// Store replaces the config object wholesale.
func (a *AwsS3Repository) Store(data []byte) error {
	ctx := context.Background()

	client, err := a.client(ctx)
	if err != nil {
		return err
	}

	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.BucketName),
		Key:         aws.String(a.ObjectName),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("writing s3://%s/%s: %w", a.BucketName, a.ObjectName, err)
	}

	a.Lock()
	a.rawData = append([]byte(nil), data...)
	a.Unlock()
	return nil
}

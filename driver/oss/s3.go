package oss

import (
	"errors"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	awss3 "github.com/aws/aws-sdk-go/service/s3"

	"github.com/IceFireDB/IceFireDB-Chord/store"
)

var (
	ErrMissingBucket      = errors.New("oss: bucket must not be empty")
	ErrPartialCredentials = errors.New("oss: set both access key and secret key, or neither")
)

// newClient creates the S3 client and makes sure the bucket exists.
//
// Credentials may be set in the config. If they are not, the SDK reads the
// shared credentials file or the AWS_ACCESS_KEY_ID / AWS_SECRET_ACCESS_KEY
// environment variables.
func newClient(cfg store.OSSConfig) (*awss3.S3, error) {
	awsCfg, err := awsConfig(cfg)
	if err != nil {
		return nil, err
	}

	sessionOpts := session.Options{
		SharedConfigState: session.SharedConfigEnable,
	}
	sessionOpts.Config.MergeIn(awsCfg)
	sess, err := session.NewSessionWithOptions(sessionOpts)
	if err != nil {
		return nil, err
	}
	svc := awss3.New(sess)

	if err := createBucket(cfg.Endpoint == "", svc, cfg.Bucket); err != nil {
		return nil, err
	}
	return svc, nil
}

func awsConfig(cfg store.OSSConfig) (*aws.Config, error) {
	if cfg.Bucket == "" {
		return nil, ErrMissingBucket
	}
	if (cfg.AccessKey == "") != (cfg.SecretKey == "") {
		return nil, ErrPartialCredentials
	}

	c := aws.NewConfig()
	if cfg.Region != "" {
		c = c.WithRegion(cfg.Region)
	}
	if cfg.AccessKey != "" {
		c = c.WithCredentials(credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, ""))
	}
	if cfg.Endpoint != "" {
		// self hosted services (minio, ceph rgw) mostly need path style
		c = c.WithEndpoint(cfg.Endpoint).WithS3ForcePathStyle(true)
	}
	return c, nil
}

// createBucket creates the bucket if it doesn't exist yet.
//
// Amazon S3 answers BucketAlreadyOwnedByYou for a bucket we own, so we just
// try to create it. Compatible services may answer BucketAlreadyExists even
// for our own bucket, so there we list first.
func createBucket(origS3 bool, svc *awss3.S3, bucket string) error {
	input := &awss3.CreateBucketInput{Bucket: aws.String(bucket)}

	if origS3 {
		_, err := svc.CreateBucket(input)
		if err != nil {
			var aerr awserr.Error
			if !errors.As(err, &aerr) || aerr.Code() != awss3.ErrCodeBucketAlreadyOwnedByYou {
				return err
			}
		}
		return nil
	}

	out, err := svc.ListBuckets(&awss3.ListBucketsInput{})
	if err != nil {
		return err
	}
	for _, b := range out.Buckets {
		if aws.StringValue(b.Name) == bucket {
			return nil
		}
	}
	_, err = svc.CreateBucket(input)
	return err
}

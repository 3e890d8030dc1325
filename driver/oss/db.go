package oss

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	awss3 "github.com/aws/aws-sdk-go/service/s3"

	"github.com/IceFireDB/IceFireDB-Chord/ring"
	"github.com/IceFireDB/IceFireDB-Chord/store"
)

const (
	StorageName   = "oss"
	defaultPrefix = "chord/"
)

func init() {
	store.Register(Store{})
}

type Store struct{}

func (s Store) String() string {
	return StorageName
}

func (s Store) Open(cfg store.Config) (store.Store, error) {
	return Open(cfg.OSS)
}

var _ store.Store = (*DB)(nil)

// DB keeps one object per item under prefix in an S3 compatible bucket.
type DB struct {
	c      *awss3.S3
	bucket string
	prefix string
}

func Open(cfg store.OSSConfig) (*DB, error) {
	svc, err := newClient(cfg)
	if err != nil {
		return nil, err
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &DB{c: svc, bucket: cfg.Bucket, prefix: prefix}, nil
}

// objectKey zero pads the id so that S3's lexicographic listing matches
// ring order.
func objectKey(prefix string, key ring.ID) string {
	return fmt.Sprintf("%s%020d", prefix, uint64(key))
}

func parseObjectKey(prefix, name string) (ring.ID, error) {
	rest, ok := strings.CutPrefix(name, prefix)
	if !ok {
		return 0, fmt.Errorf("%w: %q", store.ErrInvalidKey, name)
	}
	id, err := strconv.ParseUint(rest, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", store.ErrInvalidKey, name)
	}
	return ring.ID(id), nil
}

func (db *DB) Close() error {
	return nil
}

func (db *DB) StoreItem(key ring.ID, value []byte) error {
	_, err := db.c.PutObject(&awss3.PutObjectInput{
		Body:   bytes.NewReader(value),
		Bucket: aws.String(db.bucket),
		Key:    aws.String(objectKey(db.prefix, key)),
	})
	return err
}

func (db *DB) RetrieveItem(key ring.ID) (store.Item, error) {
	out, err := db.c.GetObject(&awss3.GetObjectInput{
		Bucket: aws.String(db.bucket),
		Key:    aws.String(objectKey(db.prefix, key)),
	})
	if err != nil {
		if isNoSuchKey(err) {
			return store.Absent, nil
		}
		return store.Absent, err
	}
	if out.Body == nil {
		return store.Found([]byte{}), nil
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return store.Absent, err
	}
	return store.Found(data), nil
}

func (db *DB) Iterate(fn func(key ring.ID, value []byte) error) error {
	var names []string
	err := db.c.ListObjectsV2Pages(&awss3.ListObjectsV2Input{
		Bucket: aws.String(db.bucket),
		Prefix: aws.String(db.prefix),
	}, func(page *awss3.ListObjectsV2Output, _ bool) bool {
		for _, obj := range page.Contents {
			names = append(names, aws.StringValue(obj.Key))
		}
		return true
	})
	if err != nil {
		return err
	}

	for _, name := range names {
		id, err := parseObjectKey(db.prefix, name)
		if err != nil {
			return err
		}
		item, err := db.RetrieveItem(id)
		if err != nil {
			return err
		}
		// deleted between list and get
		if !item.Found {
			continue
		}
		if err := fn(id, item.Value); err != nil {
			return err
		}
	}
	return nil
}

func isNoSuchKey(err error) bool {
	var aerr awserr.Error
	return errors.As(err, &aerr) && aerr.Code() == awss3.ErrCodeNoSuchKey
}

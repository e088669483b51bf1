package store

import (
	"bytes"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	raven "github.com/getsentry/raven-go"
)

// A S3 store keeps blobs on AWS S3 (or anything speaking its API).
// Do not change Bucket or Prefix concurrently with calls using the structure.
type S3 struct {
	svc    *s3.S3
	Bucket string
	Prefix string
	misses *misscache // remember recent "not found" answers
}

// NewS3 creates a new S3 store. It will use the given bucket and will prepend
// prefix to all keys. This is to allow for a bucket to be used for more than
// one store. For example if prefix were "photos/" then a Stat("hello") would
// look for the key "photos/hello" in the bucket. The authorization method and
// credentials in the session are used for all accesses.
func NewS3(bucket, prefix string, awsSession *session.Session) *S3 {
	return &S3{
		Bucket: bucket,
		Prefix: prefix,
		svc:    s3.New(awsSession),
		misses: newMissCache(),
	}
}

// Put uploads data under the given key in a single PutObject call. Rendered
// documents and photos are small enough that the multipart interface is not
// needed.
func (s *S3) Put(key string, data []byte, contentType string) error {
	input := &s3.PutObjectInput{
		Body:          bytes.NewReader(data),
		Bucket:        aws.String(s.Bucket),
		Key:           aws.String(s.Prefix + key),
		ContentLength: aws.Int64(int64(len(data))),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	_, err := s.svc.PutObject(input)
	if err != nil {
		log.Println("S3 Put:", s.Prefix, key, err)
		raven.CaptureError(err, map[string]string{"Bucket": s.Bucket, "Key": key})
		return err
	}
	s.misses.Forget(key)
	return nil
}

// Open returns a reader over the content for the given key.
func (s *S3) Open(key string) (io.ReadCloser, int64, error) {
	output, err := s.svc.GetObject(&s3.GetObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(s.Prefix + key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, 0, ErrNotExist
		}
		log.Println("S3 Open:", s.Prefix, key, err)
		return nil, 0, err
	}
	var size int64
	if output.ContentLength != nil {
		size = *output.ContentLength
	}
	return output.Body, size, nil
}

// Stat does a HEAD request for the key and returns the object size.
//
// Any answer other than a definite "it exists" is reported as ErrNotExist.
// The cache controller uses Stat to validate stored document keys, and the
// safe direction to be wrong in is "absent": the cost is a regeneration, not
// a URL pointing at nothing. Recent misses are remembered for a short time;
// hits are never cached since an object can be deleted out from under us.
func (s *S3) Stat(key string) (int64, error) {
	if s.misses.Missing(key) {
		return 0, ErrNotExist
	}
	info, err := s.svc.HeadObject(&s3.HeadObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(s.Prefix + key),
	})
	if err != nil {
		if !isNotFound(err) {
			log.Println("S3 Stat:", s.Prefix, key, err)
			raven.CaptureError(err, map[string]string{"Bucket": s.Bucket, "Key": key})
		}
		s.misses.Add(key)
		return 0, ErrNotExist
	}
	var size int64
	if info.ContentLength != nil {
		size = *info.ContentLength
	}
	return size, nil
}

// Delete will remove the given key from the store. The store's Prefix is
// prepended first. It is not an error to delete something that doesn't exist.
func (s *S3) Delete(key string) error {
	_, err := s.svc.DeleteObject(&s3.DeleteObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(s.Prefix + key),
	})
	if err != nil {
		log.Println("S3 Delete:", s.Prefix, key, err)
		raven.CaptureError(err, map[string]string{"Bucket": s.Bucket, "Key": key})
	} else {
		s.misses.Add(key)
	}
	return err
}

// ListPrefix returns the keys in this store that have the given prefix.
// The argument prefix is added to the store's Prefix.
func (s *S3) ListPrefix(prefix string) ([]string, error) {
	var result []string
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(s.Bucket),
		Prefix: aws.String(s.Prefix + prefix),
	}
	err := s.svc.ListObjectsV2Pages(input,
		func(page *s3.ListObjectsV2Output, lastpage bool) bool {
			for _, item := range page.Contents {
				result = append(result, strings.TrimPrefix(*item.Key, s.Prefix))
			}
			return !lastpage
		})
	if err != nil {
		log.Println("S3 ListPrefix:", s.Prefix, prefix, err)
		raven.CaptureError(err, map[string]string{"Bucket": s.Bucket, "Prefix": s.Prefix, "Pattern": prefix})
	}
	return result, err
}

// DeletePrefix lists every key under the given prefix and removes them in
// batches. It returns the number deleted. If the listing or a batch fails we
// still try the remaining batches, so a partial failure deletes as much as
// possible.
func (s *S3) DeletePrefix(prefix string) (int, error) {
	keys, err := s.ListPrefix(prefix)
	if len(keys) == 0 {
		return 0, err
	}
	var count int
	// DeleteObjects takes at most 1000 keys per request
	const batchSize = 1000
	for len(keys) > 0 {
		n := len(keys)
		if n > batchSize {
			n = batchSize
		}
		var objects []*s3.ObjectIdentifier
		for _, key := range keys[:n] {
			objects = append(objects, &s3.ObjectIdentifier{
				Key: aws.String(s.Prefix + key),
			})
		}
		output, err2 := s.svc.DeleteObjects(&s3.DeleteObjectsInput{
			Bucket: aws.String(s.Bucket),
			Delete: &s3.Delete{Objects: objects},
		})
		if err2 != nil {
			log.Println("S3 DeletePrefix:", s.Prefix, prefix, err2)
			raven.CaptureError(err2, map[string]string{"Bucket": s.Bucket, "Prefix": s.Prefix, "Pattern": prefix})
			if err == nil {
				err = err2
			}
		} else {
			count += len(output.Deleted)
			for _, key := range keys[:n] {
				s.misses.Add(key)
			}
		}
		keys = keys[n:]
	}
	return count, err
}

// PresignGet returns a URL giving temporary read access to the object stored
// under key. The URL is signed with the session credentials and is good for
// roughly ttl.
func (s *S3) PresignGet(key string, ttl time.Duration) (string, error) {
	req, _ := s.svc.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(s.Prefix + key),
	})
	urlStr, err := req.Presign(ttl)
	if err != nil {
		log.Println("S3 PresignGet:", s.Prefix, key, err)
		raven.CaptureError(err, map[string]string{"Bucket": s.Bucket, "Key": key})
		return "", err
	}
	return urlStr, nil
}

// isNotFound reports whether err is S3 telling us the object is absent, as
// opposed to a transport or permission problem.
func isNotFound(err error) bool {
	if e, ok := err.(awserr.RequestFailure); ok {
		return e.StatusCode() == http.StatusNotFound
	}
	if e, ok := err.(awserr.Error); ok {
		return e.Code() == s3.ErrCodeNoSuchKey || e.Code() == "NotFound"
	}
	return false
}

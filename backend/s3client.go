package backend

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/pkg/errors"

	"github.com/oio-sds/kinetic-gateway/internal/metrics"
	"github.com/oio-sds/kinetic-gateway/internal/xsync"
)

// Sentinel pipeline-level errors (spec.md §7). Backend-facing code wraps
// the SDK's own error with one of these so callers can classify failures
// without depending on AWS SDK types.
var (
	ErrNotFound = errors.New("not found")
	ErrAlready  = errors.New("already exists")
	ErrNetwork  = errors.New("network error")
	ErrProtocol = errors.New("protocol error")
)

// s3Client is the concrete backend.Client: one target address, one
// underlying *s3.Client, safe for concurrent Start calls (the AWS SDK's
// HTTP transport already multiplexes concurrent requests over pooled
// connections, matching spec.md's "multiplexed over a single backend
// session" requirement for C1).
type s3Client struct {
	target   string
	bucket   string
	endpoint string
	api      *s3.Client
}

// newS3Client parses target ("http://host:port/bucket") into an endpoint
// and bucket, and builds an S3 client bound to it. Anonymous credentials
// are always used since target addresses carry no auth material in
// this spec's surface (auth/TLS are explicitly out of scope, spec.md §1);
// the explicit credentials provider takes precedence over any
// AWS_ACCESS_KEY_ID/AWS_SECRET_ACCESS_KEY set in the environment.
func newS3Client(ctx context.Context, target string) (*s3Client, error) {
	u, err := url.Parse(target)
	if err != nil {
		return nil, errors.Wrapf(err, "target %q is not a valid address", target)
	}
	bucket := strings.Trim(u.Path, "/")
	if bucket == "" {
		return nil, errors.Errorf("target %q has no bucket path segment", target)
	}
	if i := strings.IndexByte(bucket, '/'); i >= 0 {
		bucket = bucket[:i]
	}
	endpoint := u.Scheme + "://" + u.Host

	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion("us-east-1"),
		config.WithCredentialsProvider(aws.AnonymousCredentials{}),
	)
	if err != nil {
		return nil, errors.Wrap(err, "loading aws config")
	}

	api := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})

	return &s3Client{target: target, bucket: bucket, endpoint: endpoint, api: api}, nil
}

func (c *s3Client) ID() string { return c.target }

// Start dispatches op in its own goroutine and returns a Sync that
// resolves once the S3 round trip completes. This is the Go rendering of
// "Start returns immediately with a completion handle" (spec.md §4.1):
// the goroutine is the task, the Sync is the suspension point.
func (c *s3Client) Start(ctx context.Context, op Op) *xsync.Sync {
	sync := xsync.NewSync()
	go func() {
		started := time.Now()
		var err error
		switch o := op.(type) {
		case *PutOp:
			err = c.put(ctx, o)
			metrics.BackendRPCDuration.WithLabelValues("put").Observe(time.Since(started).Seconds())
		case *GetOp:
			err = c.get(ctx, o)
			metrics.BackendRPCDuration.WithLabelValues("get").Observe(time.Since(started).Seconds())
		case *RangeOp:
			err = c.getRange(ctx, o)
			metrics.BackendRPCDuration.WithLabelValues("range").Observe(time.Since(started).Seconds())
		case *DeleteOp:
			err = c.del(ctx, o)
			metrics.BackendRPCDuration.WithLabelValues("delete").Observe(time.Since(started).Seconds())
		case *ListRangeOp:
			err = c.listRange(ctx, o)
			metrics.BackendRPCDuration.WithLabelValues("list").Observe(time.Since(started).Seconds())
		default:
			err = errors.Errorf("unsupported op %T", op)
		}
		sync.Resolve(err)
	}()
	return sync
}

func (c *s3Client) put(ctx context.Context, o *PutOp) error {
	_, err := c.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(o.Key),
		Body:   bytes.NewReader(o.Value),
	})
	return classify(err)
}

func (c *s3Client) get(ctx context.Context, o *GetOp) error {
	out, err := c.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(o.Key),
	})
	if err != nil {
		return classify(err)
	}
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return errors.Wrap(ErrNetwork, err.Error())
	}
	o.Value = data
	return nil
}

func (c *s3Client) getRange(ctx context.Context, o *RangeOp) error {
	rng := fmt.Sprintf("bytes=%d-", o.Offset)
	if o.Length > 0 {
		rng = fmt.Sprintf("bytes=%d-%d", o.Offset, o.Offset+o.Length-1)
	}
	out, err := c.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(o.Key),
		Range:  aws.String(rng),
	})
	if err != nil {
		return classify(err)
	}
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return errors.Wrap(ErrNetwork, err.Error())
	}
	o.Value = data
	return nil
}

func (c *s3Client) del(ctx context.Context, o *DeleteOp) error {
	_, err := c.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(o.Key),
	})
	return classify(err)
}

// listRange implements the [Start, End] inclusive key-range query every
// target is probed with (Listing.Prepare's full-chunk scan, and
// Upload.Prepare's single-key manifest probe with MaxItems=1), paging
// through ListObjectsV2 until End is passed or MaxItems is reached.
func (c *s3Client) listRange(ctx context.Context, o *ListRangeOp) error {
	var (
		token *string
		keys  []string
	)
	for {
		out, err := c.api.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(c.bucket),
			StartAfter:        aws.String(before(o.Start)),
			ContinuationToken: token,
		})
		if err != nil {
			return classify(err)
		}
		for _, obj := range out.Contents {
			key := aws.ToString(obj.Key)
			if key < o.Start {
				continue
			}
			if key > o.End {
				o.Keys = keys
				return nil
			}
			keys = append(keys, key)
			if o.MaxItems > 0 && len(keys) >= o.MaxItems {
				o.Keys = keys
				return nil
			}
		}
		if !aws.ToBool(out.IsTruncated) {
			break
		}
		token = out.ContinuationToken
	}
	o.Keys = keys
	return nil
}

// before returns the strict predecessor bound StartAfter needs to make
// the range query start-inclusive: because ListObjectsV2's StartAfter is
// exclusive, we start one byte below the real bound; listRange then skips
// any key that still sorts below o.Start.
func before(key string) string {
	if key == "" {
		return ""
	}
	return key[:len(key)-1] + string(rune(key[len(key)-1]-1))
}

// classify maps an AWS SDK error into one of the pipeline-level sentinels
// spec.md §7 defines. The sentinel is the wrapped cause (errors.Cause
// returns it); the original error survives only as the message text.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var nf *types.NoSuchKey
	if errors.As(err, &nf) {
		return errors.Wrap(ErrNotFound, err.Error())
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NoSuchBucket":
			return errors.Wrap(ErrNotFound, err.Error())
		default:
			return errors.Wrap(ErrProtocol, err.Error())
		}
	}
	return errors.Wrap(ErrNetwork, err.Error())
}

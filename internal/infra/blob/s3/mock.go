package s3

import (
	"bytes"
	"context"
	"encoding/xml"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// NewMockForTests returns a *Store whose SDK client talks to an in-process
// fake bucket instead of the network. Only the operations behind core.Store
// are implemented, which lets publishing tests exercise the real SDK client
// offline.
func NewMockForTests() *Store {
	return newFakeStore(&fakeBucket{objects: map[string]fakeObject{}})
}

func newFakeStore(rt http.RoundTripper) *Store {
	cfg, _ := config.LoadDefaultConfig(context.Background(),
		config.WithRegion("us-east-1"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("AKIA", "SECRET", "")),
	)
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.HTTPClient = &http.Client{Transport: rt}
		o.UsePathStyle = true
		o.BaseEndpoint = aws.String("https://fake.s3.local")
	})
	return &Store{client: client, bucket: "fake-bucket", presign: s3.NewPresignClient(client)}
}

// fakeBucket answers the SDK's HTTP requests from an in-memory object map.
// Puts overwrite like real S3 does; create-only is the Store's job.
type fakeBucket struct {
	objects map[string]fakeObject
}

type fakeObject struct {
	body        []byte
	contentType string
	metadata    map[string]string
}

func (b *fakeBucket) RoundTrip(req *http.Request) (*http.Response, error) {
	key := objectKey(req.URL.Path)
	switch {
	case req.Method == http.MethodGet && req.URL.Query().Get("list-type") == "2":
		return b.list(req.URL.Query().Get("prefix"))
	case req.Method == http.MethodHead:
		return b.head(key)
	case req.Method == http.MethodGet:
		return b.get(key)
	case req.Method == http.MethodPut:
		return b.put(key, req)
	case req.Method == http.MethodDelete:
		delete(b.objects, key)
		return response(http.StatusNoContent, nil, nil), nil
	default:
		return response(http.StatusNotImplemented, nil, nil), nil
	}
}

// objectKey strips the leading /<bucket>/ from a path-style request path.
func objectKey(p string) string {
	parts := strings.SplitN(strings.TrimPrefix(p, "/"), "/", 2)
	if len(parts) == 2 {
		return parts[1]
	}
	return ""
}

type listBucketResult struct {
	XMLName     xml.Name    `xml:"ListBucketResult"`
	IsTruncated bool        `xml:"IsTruncated"`
	Contents    []listEntry `xml:"Contents"`
}

type listEntry struct {
	Key          string `xml:"Key"`
	Size         int    `xml:"Size"`
	LastModified string `xml:"LastModified"`
}

func (b *fakeBucket) list(prefix string) (*http.Response, error) {
	keys := make([]string, 0, len(b.objects))
	for k := range b.objects {
		if prefix == "" || strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	var result listBucketResult
	for _, k := range keys {
		result.Contents = append(result.Contents, listEntry{
			Key:          k,
			Size:         len(b.objects[k].body),
			LastModified: "2024-01-01T00:00:00Z",
		})
	}
	payload, err := xml.Marshal(result)
	if err != nil {
		return nil, err
	}
	return response(http.StatusOK, payload, http.Header{"Content-Type": {"application/xml"}}), nil
}

func (b *fakeBucket) head(key string) (*http.Response, error) {
	obj, ok := b.objects[key]
	if !ok {
		return response(http.StatusNotFound, nil, nil), nil
	}
	return response(http.StatusOK, nil, objectHeaders(obj)), nil
}

func (b *fakeBucket) get(key string) (*http.Response, error) {
	obj, ok := b.objects[key]
	if !ok {
		return response(http.StatusNotFound, nil, nil), nil
	}
	return response(http.StatusOK, obj.body, objectHeaders(obj)), nil
}

func (b *fakeBucket) put(key string, req *http.Request) (*http.Response, error) {
	body, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, err
	}
	if decoded, ok := decodeAWSChunked(body); ok {
		body = decoded
	}
	obj := fakeObject{body: body, contentType: req.Header.Get("Content-Type")}
	for name, values := range req.Header {
		meta, ok := strings.CutPrefix(strings.ToLower(name), "x-amz-meta-")
		if !ok || len(values) == 0 {
			continue
		}
		if obj.metadata == nil {
			obj.metadata = map[string]string{}
		}
		obj.metadata[meta] = values[0]
	}
	b.objects[key] = obj
	return response(http.StatusOK, nil, http.Header{"ETag": {`"fake-etag"`}}), nil
}

func objectHeaders(obj fakeObject) http.Header {
	h := http.Header{
		"Content-Length": {strconv.Itoa(len(obj.body))},
		"Content-Type":   {obj.contentType},
		"ETag":           {`"fake-etag"`},
		"Last-Modified":  {time.Now().UTC().Format(http.TimeFormat)},
	}
	for k, v := range obj.metadata {
		h.Set("X-Amz-Meta-"+k, v)
	}
	return h
}

func response(status int, body []byte, header http.Header) *http.Response {
	if header == nil {
		header = http.Header{}
	}
	return &http.Response{StatusCode: status, Body: io.NopCloser(bytes.NewReader(body)), Header: header}
}

// decodeAWSChunked unwraps a single-chunk aws-chunked payload, the shape the
// SDK emits for small streaming uploads: <hex-size>\r\n<body>\r\n0\r\n...
func decodeAWSChunked(b []byte) ([]byte, bool) {
	parts := strings.Split(string(b), "\r\n")
	if len(parts) < 3 {
		return nil, false
	}
	size, err := strconv.ParseInt(parts[0], 16, 64)
	if err != nil || int64(len(parts[1])) != size || parts[2] != "0" {
		return nil, false
	}
	return []byte(parts[1]), true
}

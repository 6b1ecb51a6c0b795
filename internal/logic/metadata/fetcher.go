package metadata

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"solaboard/internal/logic/domain"
	"solaboard/internal/metrics"

	"github.com/zeromicro/go-zero/core/jsonx"
	"github.com/zeromicro/go-zero/rest/httpc"
)

const maxBodyBytes = 1 << 20

// URIFetcher 拉取链下 JSON
type URIFetcher interface {
	Fetch(ctx context.Context, uri string) (*domain.OffChainMetadata, error)
}

// HttpFetcher 基于 go-zero httpc 的 GET 实现
type HttpFetcher struct {
	timeout time.Duration
}

func NewHttpFetcher(timeout time.Duration) *HttpFetcher {
	return &HttpFetcher{timeout: timeout}
}

// IsWebURI 只有包含 http 的 uri 才会去拉取
func IsWebURI(uri string) bool {
	return strings.Contains(uri, "http")
}

func (f *HttpFetcher) Fetch(ctx context.Context, uri string) (meta *domain.OffChainMetadata, err error) {
	defer func() { metrics.MetadataLookups.WithLabelValues("offchain", metrics.Result(err)).Inc() }()

	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, fmt.Errorf("build request %q: %w", uri, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := httpc.DoRequest(req)
	if err != nil {
		return nil, fmt.Errorf("get %q: %w", uri, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get %q: status %d", uri, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read %q: %w", uri, err)
	}

	var out domain.OffChainMetadata
	if err := jsonx.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode %q: %w", uri, err)
	}
	return &out, nil
}

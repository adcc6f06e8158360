package crawler

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"sjsage522/examwatcher/services/cache"
)

// MockCacheService implements a simple in-memory cache for testing
type MockCacheService struct {
	cache map[string][]byte
}

var _ cache.CacheService = (*MockCacheService)(nil)

func NewMockCacheService() *MockCacheService {
	return &MockCacheService{
		cache: make(map[string][]byte),
	}
}

func (m *MockCacheService) Get(key string) ([]byte, error) {
	if val, ok := m.cache[key]; ok {
		return val, nil
	}
	return nil, cache.ErrMiss
}

func (m *MockCacheService) Set(key string, value []byte, expiration time.Duration) error {
	m.cache[key] = value
	return nil
}

func (m *MockCacheService) Delete(key string) error {
	delete(m.cache, key)
	return nil
}

// mockFetcher serves canned pages; a page missing from pages fails to fetch
type mockFetcher struct {
	mu    sync.Mutex
	pages map[int]string
	calls []int
}

var _ Fetcher = (*mockFetcher)(nil)

func (m *mockFetcher) Fetch(ctx context.Context, page int) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, page)

	html, ok := m.pages[page]
	if !ok {
		return nil, fmt.Errorf("page %d: connection refused", page)
	}
	return []byte(html), nil
}

// tablePage renders a results page with two header rows followed by rows
func tablePage(rows ...[]string) string {
	var b strings.Builder
	b.WriteString(`<html><body><table class="table table-striped table-bordered table-responsive city_table">`)
	b.WriteString(`<tr><th colspan="7">آزمون‌های تهران</th></tr>`)
	b.WriteString(`<tr><th>وضعیت</th><th>نام آزمون</th><th>نوع</th><th>نوع آزمون</th><th>تاریخ برگزاری</th><th>محل برگزاری</th><th>هزینه</th></tr>`)
	for _, row := range rows {
		b.WriteString("<tr>")
		for _, cell := range row {
			b.WriteString("<td> " + cell + " </td>")
		}
		b.WriteString("</tr>")
	}
	b.WriteString("</table></body></html>")
	return b.String()
}

func completedRow(name string) []string {
	return []string{CompletedStatus, name, "آکادمیک", "کامپیوتری", "1404/04/10", "تهران - ونک", "۲۵٬۰۰۰٬۰۰۰"}
}

func openRow(name string) []string {
	return []string{"ثبت نام", name, "آکادمیک", "کامپیوتری", "1404/04/12", "تهران - سعادت آباد", "۲۵٬۰۰۰٬۰۰۰"}
}

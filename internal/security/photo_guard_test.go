package security

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// TestNewPhotoGuard はPhotoGuardの生成をテストする。
func TestNewPhotoGuard(t *testing.T) {
	guard := NewPhotoGuard()
	if guard == nil {
		t.Fatal("NewPhotoGuard() returned nil")
	}
}

// TestNewSafeClient はSSRF防止付きHTTPクライアントの生成をテストする。
func TestNewSafeClient(t *testing.T) {
	guard := NewPhotoGuard()
	client := guard.NewSafeClient(10*time.Second, 2*1024*1024)
	if client == nil {
		t.Fatal("NewSafeClient() returned nil")
	}
}

// TestNewSafeClientTimeout はタイムアウト設定が反映されることをテストする。
func TestNewSafeClientTimeout(t *testing.T) {
	guard := NewPhotoGuard()
	timeout := 5 * time.Second
	client := guard.NewSafeClient(timeout, 2*1024*1024)
	if client.Timeout != timeout {
		t.Errorf("expected timeout %v, got %v", timeout, client.Timeout)
	}
}

// TestNewSafeClientHasTransport はSafeClientにカスタムTransportが設定されていることをテストする。
// safeurlはnet.DialerのControlフックでIPアドレス検証を行うため、
// Transportが標準のhttp.DefaultTransportではないことを確認する。
func TestNewSafeClientHasTransport(t *testing.T) {
	guard := NewPhotoGuard()
	client := guard.NewSafeClient(5*time.Second, 2*1024*1024)

	if client.Transport == nil {
		t.Fatal("expected custom Transport to be set, got nil")
	}
	if client.Transport == http.DefaultTransport {
		t.Fatal("expected custom Transport, got http.DefaultTransport")
	}
}

// TestNewSafeClientBlocksLoopback はSafeClientがループバックへのリクエストをブロックすることをテストする。
// httptestサーバーは127.0.0.1で起動されるため、safeurlがブロックする。
func TestNewSafeClientBlocksLoopback(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	guard := NewPhotoGuard()
	client := guard.NewSafeClient(5*time.Second, 2*1024*1024)

	_, err := client.Get(ts.URL)
	if err == nil {
		t.Fatal("expected error for loopback address request, got nil")
	}
}

// TestValidatePhotoURL_PublicURL は公開URLの検証が成功することをテストする。
func TestValidatePhotoURL_PublicURL(t *testing.T) {
	guard := NewPhotoGuard()

	publicURLs := []string{
		"https://example.com",
		"https://photos.example.com/students/20cs1234.jpg",
		"http://cdn.example.org/avatar.png",
	}

	for _, u := range publicURLs {
		t.Run(u, func(t *testing.T) {
			err := guard.ValidatePhotoURL(u)
			if err != nil {
				t.Errorf("ValidatePhotoURL(%q) returned error: %v", u, err)
			}
		})
	}
}

// TestValidatePhotoURL_PrivateIP はプライベートIPアドレスの拒否をテストする。
func TestValidatePhotoURL_PrivateIP(t *testing.T) {
	guard := NewPhotoGuard()

	privateURLs := []string{
		"http://10.0.0.1/photo.jpg",
		"http://10.255.255.255/photo.jpg",
		"http://172.16.0.1/photo.jpg",
		"http://172.31.255.255/photo.jpg",
		"http://192.168.0.1/photo.jpg",
		"http://192.168.1.100/photo.jpg",
	}

	for _, u := range privateURLs {
		t.Run(u, func(t *testing.T) {
			err := guard.ValidatePhotoURL(u)
			if err == nil {
				t.Errorf("ValidatePhotoURL(%q) should have returned error for private IP", u)
			}
		})
	}
}

// TestValidatePhotoURL_LoopbackAddress はループバックアドレスの拒否をテストする。
func TestValidatePhotoURL_LoopbackAddress(t *testing.T) {
	guard := NewPhotoGuard()

	loopbackURLs := []string{
		"http://127.0.0.1/photo.jpg",
		"http://127.0.0.2/photo.jpg",
		"http://localhost/photo.jpg",
	}

	for _, u := range loopbackURLs {
		t.Run(u, func(t *testing.T) {
			err := guard.ValidatePhotoURL(u)
			if err == nil {
				t.Errorf("ValidatePhotoURL(%q) should have returned error for loopback address", u)
			}
		})
	}
}

// TestValidatePhotoURL_MetadataIP はクラウドメタデータIPアドレスの拒否をテストする。
func TestValidatePhotoURL_MetadataIP(t *testing.T) {
	guard := NewPhotoGuard()

	metadataURLs := []string{
		"http://169.254.169.254/latest/meta-data/",                         // AWS
		"http://169.254.169.254/metadata/instance?api-version=2021-02-01", // Azure
		"http://169.254.169.254/computeMetadata/v1/",                      // GCP
	}

	for _, u := range metadataURLs {
		t.Run(u, func(t *testing.T) {
			err := guard.ValidatePhotoURL(u)
			if err == nil {
				t.Errorf("ValidatePhotoURL(%q) should have returned error for metadata IP", u)
			}
		})
	}
}

// TestValidatePhotoURL_InvalidURL は無効なURLの検証が失敗することをテストする。
func TestValidatePhotoURL_InvalidURL(t *testing.T) {
	guard := NewPhotoGuard()

	invalidURLs := []string{
		"",
		"not-a-url",
		"ftp://example.com/photo.jpg",
		"file:///etc/passwd",
		"gopher://example.com",
	}

	for _, u := range invalidURLs {
		t.Run(u, func(t *testing.T) {
			err := guard.ValidatePhotoURL(u)
			if err == nil {
				t.Errorf("ValidatePhotoURL(%q) should have returned error for invalid URL", u)
			}
		})
	}
}

// TestValidatePhotoURL_IPv6Loopback はIPv6ループバックアドレスの拒否をテストする。
func TestValidatePhotoURL_IPv6Loopback(t *testing.T) {
	guard := NewPhotoGuard()

	err := guard.ValidatePhotoURL("http://[::1]/photo.jpg")
	if err == nil {
		t.Error("ValidatePhotoURL(\"http://[::1]/photo.jpg\") should have returned error for IPv6 loopback")
	}
}

// TestValidatePhotoURL_ZeroAddress は0.0.0.0の拒否をテストする。
func TestValidatePhotoURL_ZeroAddress(t *testing.T) {
	guard := NewPhotoGuard()

	err := guard.ValidatePhotoURL("http://0.0.0.0/photo.jpg")
	if err == nil {
		t.Error("ValidatePhotoURL(\"http://0.0.0.0/photo.jpg\") should have returned error for zero address")
	}
}

// TestPhotoGuardInterface はPhotoGuardがインターフェースを正しく実装していることをテストする。
func TestPhotoGuardInterface(t *testing.T) {
	var _ PhotoGuardService = NewPhotoGuard()
}

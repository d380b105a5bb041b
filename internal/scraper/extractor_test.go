package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/bilgisen/autopress/internal/models"
)

const pageURL = "https://news.example.com/2024/05/01/berita"

const detikPage = `<!DOCTYPE html>
<html><head>
<title>Judul Dari Tag Title</title>
<meta property="og:title" content="Judul Dari OG">
<meta name="author" content="Rina Wartawan">
</head><body>
<header><h1>Logo Situs Yang Dibuang</h1></header>
<nav><p>Menu navigasi yang cukup panjang untuk lolos filter</p></nav>
<h1 class="title">Harga Beras Naik Menjelang Lebaran</h1>
<div class="detail__media-image"><img src="/images/beras.jpg"></div>
<div class="detail__body-text">
  <p>Harga beras di pasar tradisional Jakarta naik sepuluh persen dalam sepekan terakhir.</p>
  <p>Singkat.</p>
  <p>Baca juga: Harga cabai turun drastis di berbagai daerah hari ini</p>
  <div class="baca-juga"><p>Artikel terkait yang seharusnya dihapus dari halaman</p></div>
  <ul>
    <li>Beras medium naik menjadi Rp 13.000 per kilogram</li>
    <li>Beras premium naik menjadi Rp 15.500 per kilogram</li>
  </ul>
  <table>
    <tr><th>Komoditas</th><th>Harga lama</th><th>Harga baru</th></tr>
    <tr><td>Beras medium</td><td>Rp 11.800</td><td>Rp 13.000</td></tr>
  </table>
  <script>var tracking = "Paragraf palsu dari skrip yang panjang sekali";</script>
  <p>Copyright 2024 Situs Berita. Seluruh hak cipta dilindungi undang-undang.</p>
</div>
<div class="ads"><p>Iklan yang cukup panjang untuk lolos filter panjang</p></div>
<footer><p>Tentang kami dan kontak redaksi situs berita ini</p></footer>
</body></html>`

func TestExtractHTMLRuleChains(t *testing.T) {
	got := NewExtractor(Options{}).ExtractHTML(pageURL, []byte(detikPage))

	if got.Status != models.ExtractionOK {
		t.Fatalf("Expected ok status, got %s", got.Status)
	}
	if got.Title != "Harga Beras Naik Menjelang Lebaran" {
		t.Errorf("Title = %q", got.Title)
	}
	if got.LeadImage != "https://news.example.com/images/beras.jpg" {
		t.Errorf("LeadImage = %q", got.LeadImage)
	}
	if got.Author != "Rina Wartawan" {
		t.Errorf("Author = %q", got.Author)
	}

	want := strings.Join([]string{
		"Harga beras di pasar tradisional Jakarta naik sepuluh persen dalam sepekan terakhir.",
		"- Beras medium naik menjadi Rp 13.000 per kilogram",
		"- Beras premium naik menjadi Rp 15.500 per kilogram",
		"Komoditas | Harga lama | Harga baru",
		"Beras medium | Rp 11.800 | Rp 13.000",
	}, "\n\n")
	if got.BodyText != want {
		t.Errorf("BodyText mismatch\n got: %q\nwant: %q", got.BodyText, want)
	}
}

func TestExtractHTMLTitleFallbacks(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{"article title class", `<h1>Umum</h1><h1 class="article-title">Spesifik</h1>`, "Spesifik"},
		{"first h1", `<h1> Pertama  Sekali </h1><h1>Kedua</h1>`, "Pertama Sekali"},
		{"og title", `<head><meta property="og:title" content="Dari OG"><title>Dari Title</title></head>`, "Dari OG"},
		{"title tag", `<head><title>Dari Title</title></head>`, "Dari Title"},
	}

	e := NewExtractor(Options{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := e.ExtractHTML(pageURL, []byte(tt.html)).Title; got != tt.want {
				t.Errorf("Title = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractHTMLImageFallbacks(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{
			"og image wins",
			`<head><meta property="og:image" content="https://cdn.example.com/og.jpg"></head><body><article><img src="/a.jpg"></article></body>`,
			"https://cdn.example.com/og.jpg",
		},
		{
			"lazy attribute before src",
			`<article><img src="/placeholder.png" data-src="/real.jpg"></article>`,
			"https://news.example.com/real.jpg",
		},
		{
			"srcset first candidate",
			`<article><img srcset="/small.jpg 480w, /large.jpg 1080w"></article>`,
			"https://news.example.com/small.jpg",
		},
		{
			"placeholder skipped for next image",
			`<article><img src="data:image/gif;base64,R0lGOD"><img src="//img.example.com/nyata.jpg"></article>`,
			"https://img.example.com/nyata.jpg",
		},
		{
			"container image before page image",
			`<body><div class="logo"><img src="/logo.png"></div><div class="read__content"><img src="konten.jpg"></div></body>`,
			"https://news.example.com/2024/05/01/konten.jpg",
		},
		{
			"any image",
			`<body><div><img src="https://other.example.com/x.jpg"></div></body>`,
			"https://other.example.com/x.jpg",
		},
		{
			"no image",
			`<body><p>Tidak ada gambar sama sekali di halaman ini</p></body>`,
			"",
		},
	}

	e := NewExtractor(Options{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := e.ExtractHTML(pageURL, []byte(tt.html)).LeadImage; got != tt.want {
				t.Errorf("LeadImage = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractHTMLAuthorSelectors(t *testing.T) {
	html := `<body><span class="detail__author">Tim Redaksi</span><article><p>Isi artikel yang cukup panjang untuk dipertahankan.</p></article></body>`
	if got := NewExtractor(Options{}).ExtractHTML(pageURL, []byte(html)).Author; got != "Tim Redaksi" {
		t.Errorf("Author = %q", got)
	}
}

func TestExtractHTMLContainerFallsBackToBody(t *testing.T) {
	html := `<body><div><p>Paragraf tanpa kontainer artikel yang dikenali sama sekali.</p></div></body>`
	got := NewExtractor(Options{}).ExtractHTML(pageURL, []byte(html))
	if got.BodyText != "Paragraf tanpa kontainer artikel yang dikenali sama sekali." {
		t.Errorf("BodyText = %q", got.BodyText)
	}
}

func TestExtractHTMLRawTextFallback(t *testing.T) {
	html := "<body><div class=\"entry-content\">Baris pertama yang cukup panjang untuk lolos.\n\nPendek\n\nBaris kedua juga cukup panjang untuk lolos.</div></body>"
	got := NewExtractor(Options{}).ExtractHTML(pageURL, []byte(html))

	want := "Baris pertama yang cukup panjang untuk lolos.\n\nBaris kedua juga cukup panjang untuk lolos."
	if got.BodyText != want {
		t.Errorf("BodyText = %q, want %q", got.BodyText, want)
	}
}

func TestExtractHTMLEmptyBody(t *testing.T) {
	for _, body := range []string{"", "<<<>>>", "\x00\x01\x02", "<html><body><nav>menu</nav></body></html>"} {
		got := NewExtractor(Options{}).ExtractHTML(pageURL, []byte(body))
		if got.BodyText != "" {
			t.Errorf("Expected empty body for %q, got %q", body, got.BodyText)
		}
		if got.Status != models.ExtractionEmpty {
			t.Errorf("Expected empty status for %q, got %s", body, got.Status)
		}
	}
}

func TestExtractHTMLCapsLength(t *testing.T) {
	var b strings.Builder
	b.WriteString("<article>")
	for i := 0; i < 50; i++ {
		b.WriteString("<p>Paragraf panjang dengan karakter multibyte é dan ü diulang terus menerus.</p>")
	}
	b.WriteString("</article>")

	got := NewExtractor(Options{MaxChars: 1000}).ExtractHTML(pageURL, []byte(b.String()))
	if n := utf8.RuneCountInString(got.BodyText); n > 1000 {
		t.Errorf("Expected at most 1000 characters, got %d", n)
	}
	if !utf8.ValidString(got.BodyText) {
		t.Error("Expected truncation to keep valid UTF-8")
	}
}

func TestExtractFetchesWithBrowserHeaders(t *testing.T) {
	var ua string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(detikPage))
	}))
	defer srv.Close()

	got := NewExtractor(Options{}).Extract(context.Background(), srv.URL+"/artikel")
	if !got.OK() {
		t.Fatalf("Expected successful extraction, got %+v", got)
	}
	if !strings.HasPrefix(got.LeadImage, srv.URL+"/images/") {
		t.Errorf("Expected image resolved against page origin, got %q", got.LeadImage)
	}
	if ua != browserUserAgent {
		t.Errorf("Expected browser user agent, got %q", ua)
	}
}

func TestExtractFailures(t *testing.T) {
	notFound := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer notFound.Close()

	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer slow.Close()

	e := NewExtractor(Options{Timeout: 200 * time.Millisecond})
	for _, u := range []string{notFound.URL, slow.URL, "not a url", "ftp://example.com/x", "http://127.0.0.1:1/closed"} {
		got := e.Extract(context.Background(), u)
		if got.Status != models.ExtractionFailed || got.Title != models.FailedExtractionTitle || got.BodyText != "" {
			t.Errorf("Expected failed sentinel for %q, got %+v", u, got)
		}
	}
}

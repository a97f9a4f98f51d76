package filename

import (
	"testing"
	"time"

	"github.com/AnyUserName/saveimg/internal/conversion"
	"github.com/AnyUserName/saveimg/internal/hasher"
	"github.com/stretchr/testify/assert"
)

var fixed = time.Date(2026, 3, 7, 9, 5, 2, 0, time.UTC)

func TestGenerate(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		in      Input
		want    string
	}{
		{
			name: "default pattern uses page host",
			in: Input{
				ImageURL: "https://cdn.images.example.com/path/photo.webp?w=300",
				PageURL:  "https://www.news.example.co/article",
				Format:   conversion.FormatPNG,
			},
			want: "example-photo-2026-03-07-09-05-02.png",
		},
		{
			name:    "image host when page is not http",
			pattern: "{site}_{name}.{ext}",
			in: Input{
				ImageURL: "https://img.example.org/a/b/cat.gif",
				PageURL:  "file:///tmp/page.html",
				Format:   conversion.FormatJPEG,
			},
			want: "example.org_cat.jpg",
		},
		{
			name:    "extension enforced",
			pattern: "{name}",
			in:      Input{ImageURL: "https://example.com/x.png", Format: conversion.FormatJPEG},
			want:    "x.jpg",
		},
		{
			name:    "directory url falls back to image",
			pattern: "{name}.{ext}",
			in:      Input{ImageURL: "https://example.com/gallery/", Format: conversion.FormatPNG},
			want:    "image.png",
		},
		{
			name:    "data url",
			pattern: "{siteShort}-{name}.{ext}",
			in:      Input{ImageURL: "data:image/png;base64,AAAA", PageURL: "https://m.shop.example.com/", Format: conversion.FormatPNG},
			want:    "example-image.png",
		},
		{
			name:    "unsafe characters replaced",
			pattern: "{name}:{date}|x.{ext}",
			in:      Input{ImageURL: "https://example.com/shot.png", Format: conversion.FormatPNG},
			want:    "shot_2026-03-07_x.png",
		},
		{
			name: "unparseable url",
			in:   Input{ImageURL: "::not a url", Format: conversion.FormatJPEG},
			want: "image.jpg",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.in.Now = fixed
			assert.Equal(t, tt.want, Generate(tt.pattern, tt.in))
		})
	}
}

func TestGenerateHash(t *testing.T) {
	data := []byte("encoded image")
	got := Generate("{name}-{hash}.{ext}", Input{
		ImageURL: "https://example.com/p.jpg",
		Format:   conversion.FormatPNG,
		Data:     data,
		Now:      fixed,
	})
	assert.Equal(t, "p-"+hasher.Short(data, 8)+".png", got)
}

func TestBaseDomain(t *testing.T) {
	assert.Equal(t, "", BaseDomain(""))
	assert.Equal(t, "localhost", BaseDomain("localhost"))
	assert.Equal(t, "example", BaseDomain("example.com"))
	assert.Equal(t, "example", BaseDomain("a.b.example.com"))
}

func TestIsHTTPLike(t *testing.T) {
	assert.True(t, IsHTTPLike("http://x"))
	assert.True(t, IsHTTPLike("https://x"))
	assert.False(t, IsHTTPLike("chrome://newtab"))
	assert.False(t, IsHTTPLike(""))
}

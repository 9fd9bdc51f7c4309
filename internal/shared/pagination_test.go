package shared

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePage(t *testing.T) {
	p := ParsePage(url.Values{})
	assert.Equal(t, PageRequest{Page: 1, PerPage: 50}, p)
	assert.Equal(t, 0, p.Offset())

	p = ParsePage(url.Values{"page": {"3"}, "per_page": {"20"}})
	assert.Equal(t, 40, p.Offset())

	p = ParsePage(url.Values{"page": {"-2"}, "per_page": {"9000"}})
	assert.Equal(t, PageRequest{Page: 1, PerPage: 500}, p)
}

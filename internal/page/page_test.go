package page

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWaitForElementAlreadyPresent(t *testing.T) {
	p := NewMemoryPage(`<html><body><div id="target">hi</div></body></html>`)

	sel, err := WaitForElement(context.Background(), p, "#target", 50*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, "hi", sel.Text())
}

func TestWaitForElementResolvesOnMutation(t *testing.T) {
	p := NewMemoryPage(`<html><body></body></html>`)

	go func() {
		time.Sleep(20 * time.Millisecond)
		p.SetHTML(`<html><body><span class="late">arrived</span></body></html>`)
	}()

	sel, err := WaitForElement(context.Background(), p, "span.late", time.Second)
	require.NoError(t, err)
	assert.Equal(t, "arrived", sel.Text())
}

func TestWaitForElementTimesOut(t *testing.T) {
	p := NewMemoryPage(`<html><body></body></html>`)

	start := time.Now()
	_, err := WaitForElement(context.Background(), p, "#never", 50*time.Millisecond)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrElementNotFound)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestWaitForElementHonorsContext(t *testing.T) {
	p := NewMemoryPage(`<html><body></body></html>`)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := WaitForElement(ctx, p, "#never", time.Minute)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestQueryNoMatchIsNil(t *testing.T) {
	p := NewMemoryPage(`<html><body><p>x</p></body></html>`)

	sel, err := Query(context.Background(), p, "#missing")
	require.NoError(t, err)
	assert.Nil(t, sel)
}

func TestMemoryPageNavigateSwapsDocument(t *testing.T) {
	p := NewMemoryPage(`<html><body>home</body></html>`)
	p.Routes["https://example.test/inbox"] = `<html><body><ul id="inbox"></ul></body></html>`

	require.NoError(t, p.Navigate(context.Background(), "https://example.test/inbox"))
	assert.Equal(t, "https://example.test/inbox", p.URL())

	sel, err := Query(context.Background(), p, "#inbox")
	require.NoError(t, err)
	assert.NotNil(t, sel)
}

func TestMemoryPageClickRequiresElement(t *testing.T) {
	p := NewMemoryPage(`<html><body><button id="go">Go</button></body></html>`)

	require.NoError(t, p.Click(context.Background(), "#go"))
	assert.Equal(t, []string{"#go"}, p.Clicks)

	err := p.Click(context.Background(), "#missing")
	assert.ErrorIs(t, err, ErrElementNotFound)
}

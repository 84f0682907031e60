package services

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/mjunaidjbr/salawat-tally-bot/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopicLink(t *testing.T) {
	link, err := TopicLink(-1001234567890, 7)
	require.NoError(t, err)
	assert.Equal(t, "https://t.me/c/1234567890/7", link)

	_, err = TopicLink(-4567, 7)
	assert.Error(t, err)

	_, err = TopicLink(-100, 7)
	assert.Error(t, err)
}

func TestCounterQRCode(t *testing.T) {
	data, link, err := CounterQRCode(&models.Counter{GroupID: -1001234567890, TopicID: 3}, 128)
	require.NoError(t, err)
	assert.Equal(t, "https://t.me/c/1234567890/3", link)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 128, img.Bounds().Dx())

	_, _, err = CounterQRCode(&models.Counter{GroupID: 55, TopicID: 3}, 0)
	assert.Error(t, err)
}

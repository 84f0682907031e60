package services

import (
	"bytes"
	"fmt"
	"image/png"
	"strconv"
	"strings"

	"github.com/mjunaidjbr/salawat-tally-bot/internal/models"
	"github.com/skip2/go-qrcode"
)

const defaultQRSize = 256

// TopicLink builds the t.me deep link into a supergroup topic. Supergroup
// chat ids carry a -100 prefix that t.me/c links omit.
func TopicLink(groupID, topicID int64) (string, error) {
	id := strconv.FormatInt(groupID, 10)
	if !strings.HasPrefix(id, "-100") || len(id) == len("-100") {
		return "", fmt.Errorf("group %d is not a supergroup", groupID)
	}
	return fmt.Sprintf("https://t.me/c/%s/%d", strings.TrimPrefix(id, "-100"), topicID), nil
}

// CounterQRCode renders a PNG QR code that opens the counter's topic.
func CounterQRCode(counter *models.Counter, size int) ([]byte, string, error) {
	link, err := TopicLink(counter.GroupID, counter.TopicID)
	if err != nil {
		return nil, "", err
	}
	if size <= 0 {
		size = defaultQRSize
	}

	qr, err := qrcode.New(link, qrcode.Medium)
	if err != nil {
		return nil, "", err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, qr.Image(size)); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), link, nil
}

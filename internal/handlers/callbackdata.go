package handlers

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/BatmanBruc/arima-bot/internal/broadcast"
)

var errBadCallback = errors.New("malformed callback data")

// Callback data prefixes carrying a parameter.
const (
	prefixPage      = "pag:"
	prefixBroadcast = "brd:"
	prefixSubDetail = "sub:"
	prefixBuy       = "buy:"
	prefixCategory  = "cat:"
	prefixModel     = "model:"
)

func pageData(action string, page int) string {
	return fmt.Sprintf("%s%s:%d", prefixPage, action, page)
}

// parsePage turns pag:<prev|next>:<page> into the page to show.
func parsePage(data string) (int, error) {
	parts := strings.Split(strings.TrimPrefix(data, prefixPage), ":")
	if len(parts) != 2 {
		return 0, errBadCallback
	}
	page, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, errBadCallback
	}
	switch parts[0] {
	case "next":
		return page + 1, nil
	case "prev":
		return page - 1, nil
	}
	return 0, errBadCallback
}

func broadcastData(action broadcast.Action, id int64) string {
	return fmt.Sprintf("%s%s:%d", prefixBroadcast, action, id)
}

func parseBroadcast(data string) (broadcast.Action, int64, error) {
	parts := strings.Split(strings.TrimPrefix(data, prefixBroadcast), ":")
	if len(parts) != 2 {
		return "", 0, errBadCallback
	}
	action := broadcast.Action(parts[0])
	if action != broadcast.ActionUnpin && action != broadcast.ActionDelete {
		return "", 0, errBadCallback
	}
	id, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return "", 0, errBadCallback
	}
	return action, id, nil
}

func intData(prefix string, v int) string {
	return prefix + strconv.Itoa(v)
}

func parseInt(data, prefix string) (int, error) {
	v, err := strconv.Atoi(strings.TrimPrefix(data, prefix))
	if err != nil {
		return 0, errBadCallback
	}
	return v, nil
}

package mqtt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDRCommandParse(t *testing.T) {

	assert := assert.New(t)

	baseTopic := "loremTopic"
	r := drCommandExtractor(baseTopic)

	matches := r.FindAllStringSubmatch("loremTopic/dr/command", 1)
	assert.Equal(1, len(matches), "dr command topic match")
}

func TestDRCommandParseFail(t *testing.T) {

	assert := assert.New(t)

	baseTopic := "loremTopic"
	r := drCommandExtractor(baseTopic)

	matches := r.FindAllStringSubmatch("loremTopic/dr/state", 1)
	assert.Equal(0, len(matches), "no matches")

	matches = r.FindAllStringSubmatch("otherTopic/dr/command", 1)
	assert.Equal(0, len(matches), "no matches")
}

func TestInputNumberCommandParse(t *testing.T) {

	assert := assert.New(t)

	baseTopic := "loremTopic"
	topic := "loremTopic/number/import_watts/set"
	r := inputNumberCommandExtractor(baseTopic)
	matches := r.FindAllStringSubmatch(topic, 1)

	assert.Equal(matches[0][1], "import_watts", "number_id extract")
}

func TestInputNumberCommandParseFail(t *testing.T) {

	assert := assert.New(t)

	baseTopic := "loremTopic"
	topic := "loremTopic/dr/import_watts/command"
	r := inputNumberCommandExtractor(baseTopic)
	matches := r.FindAllStringSubmatch(topic, 1)

	assert.Equal(len(matches), 0, "no matches")
}

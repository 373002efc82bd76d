package spacebottest

import (
	"fmt"

	"github.com/denhac/spacebot"
	"github.com/denhac/spacebot/provider/jsonrecordserializer"
)

type failingSerializer struct {
	spacebot.RecordSerializer
}

// NewFailingSerializer constructs a RecordSerializer whose Serialize always fails.
func NewFailingSerializer() *failingSerializer {
	return &failingSerializer{RecordSerializer: jsonrecordserializer.New()}
}

func (f *failingSerializer) Serialize(_ *spacebot.Record) ([]byte, error) {
	return nil, fmt.Errorf("failingSerializer.Serialize")
}

type failingDeserializer struct {
	spacebot.RecordSerializer
}

// NewFailingDeserializer constructs a RecordSerializer whose Deserialize always fails.
func NewFailingDeserializer() *failingDeserializer {
	return &failingDeserializer{RecordSerializer: jsonrecordserializer.New()}
}

func (f *failingDeserializer) Deserialize(_ []byte) (*spacebot.Record, error) {
	return nil, fmt.Errorf("failingDeserializer.Deserialize")
}

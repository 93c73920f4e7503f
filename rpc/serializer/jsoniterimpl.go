package serializer

import (
	"encoding/json"
	"errors"

	jsoniter "github.com/json-iterator/go"
	"github.com/scalaris-team/scalaris-go/rpc/common"
)

var errNotAnObject = errors.New("response is not a JSON object")

// NewJSONIterSerializer creates a new serializer using json-iterator in its
// encoding/json compatible configuration
func NewJSONIterSerializer() IRPCSerializer {
	return &jsonIterSerializerImpl{api: jsoniter.ConfigCompatibleWithStandardLibrary}
}

// jsonIterSerializerImpl implements the IRPCSerializer interface using json-iterator
type jsonIterSerializerImpl struct {
	api jsoniter.API
}

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (j jsonIterSerializerImpl) Serialize(req common.Request) ([]byte, error) {
	return j.api.Marshal(req)
}

func (j jsonIterSerializerImpl) Deserialize(b []byte, resp *common.Response) error {
	var fields map[string]json.RawMessage
	if err := j.api.Unmarshal(b, &fields); err != nil {
		return err
	}
	if fields == nil {
		return errNotAnObject
	}
	*resp = common.NewResponse(fields)
	return nil
}

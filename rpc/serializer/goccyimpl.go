package serializer

import (
	"encoding/json"

	gojson "github.com/goccy/go-json"
	"github.com/scalaris-team/scalaris-go/rpc/common"
)

// NewGoJSONSerializer creates a new serializer using goccy/go-json
func NewGoJSONSerializer() IRPCSerializer {
	return &goJSONSerializerImpl{}
}

// goJSONSerializerImpl implements the IRPCSerializer interface using goccy/go-json
type goJSONSerializerImpl struct {
}

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (g goJSONSerializerImpl) Serialize(req common.Request) ([]byte, error) {
	return gojson.Marshal(req)
}

func (g goJSONSerializerImpl) Deserialize(b []byte, resp *common.Response) error {
	var fields map[string]json.RawMessage
	if err := gojson.Unmarshal(b, &fields); err != nil {
		return err
	}
	if fields == nil {
		return errNotAnObject
	}
	*resp = common.NewResponse(fields)
	return nil
}

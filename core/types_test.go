package core

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScoreRequest(t *testing.T) {
	req, err := ParseScoreRequest([]byte(`{"modelName":"Random Forest","features":{"Time":0.1,"Amount":"12"},"featureOrder":["Time","Amount"]}`))
	require.NoError(t, err)
	assert.Equal(t, "Random Forest", req.ModelName)
	assert.Equal(t, json.Number("0.1"), req.Features["Time"])
	assert.Equal(t, "12", req.Features["Amount"])
	assert.Equal(t, []string{"Time", "Amount"}, req.FeatureOrder)

	for _, bad := range []string{``, `nope`, `null`, `[1,2]`, `"text"`, `{} {}`, `{"modelName":`} {
		_, err := ParseScoreRequest([]byte(bad))
		require.Error(t, err, bad)
		assert.True(t, IsParse(err), bad)
		assert.Equal(t, MessageParseFailed, GetDomainError(err).Message)
	}
}

func TestParseScoreRequest_FieldTypes(t *testing.T) {
	t.Run("falsy values count as missing", func(t *testing.T) {
		for _, body := range []string{
			`{"modelName":0,"features":{"a":1},"featureOrder":["a"]}`,
			`{"modelName":false,"features":{"a":1},"featureOrder":["a"]}`,
			`{"modelName":"m","features":[],"featureOrder":["a"]}`,
			`{"modelName":"m","features":"","featureOrder":["a"]}`,
			`{"modelName":"m","features":{"a":1},"featureOrder":null}`,
			`{"modelName":"m","features":{"a":1},"featureOrder":{}}`,
		} {
			req, err := ParseScoreRequest([]byte(body))
			require.NoError(t, err, body)
			err = ValidateRequest(req)
			assert.True(t, IsValidation(err), body)
			assert.Equal(t, MessageMissingFields, ErrorResponse(req.ModelName, err).Err.Error, body)
		}
	})

	t.Run("non-empty values of the wrong type are inference errors", func(t *testing.T) {
		req, err := ParseScoreRequest([]byte(`{"modelName":"Random Forest","features":[1],"featureOrder":["a"]}`))
		require.NoError(t, err)
		err = ValidateRequest(req)
		require.Error(t, err)
		assert.True(t, IsInferenceError(err))
		assert.Equal(t, "ML Inference Error for Random Forest: invalid request field: features has unsupported type array",
			ErrorResponse(req.ModelName, err).Err.Error)

		req, err = ParseScoreRequest([]byte(`{"modelName":7,"features":{"a":1},"featureOrder":["a"]}`))
		require.NoError(t, err)
		assert.Equal(t, "7", req.ModelName)
		err = ValidateRequest(req)
		assert.True(t, IsInferenceError(err))
		assert.Contains(t, ErrorResponse(req.ModelName, err).Err.Error, "ML Inference Error for 7: ")

		req, err = ParseScoreRequest([]byte(`{"modelName":"m","features":{"a":1},"featureOrder":"a"}`))
		require.NoError(t, err)
		assert.Contains(t, ValidateRequest(req).Error(), "featureOrder has unsupported type string")
	})

	t.Run("well-typed request passes", func(t *testing.T) {
		req, err := ParseScoreRequest([]byte(`{"modelName":"m","features":{"a":1},"featureOrder":["a"]}`))
		require.NoError(t, err)
		assert.NoError(t, ValidateRequest(req))
		assert.NoError(t, req.FieldError())
		assert.True(t, IsValidation(ValidateRequest(nil)))
	})
}

func TestDecodeScoreRequest(t *testing.T) {
	req, err := DecodeScoreRequest(strings.NewReader(`{"modelName":"m","features":{"a":1},"featureOrder":["a"],"entity":{"tx":"t1"}}`))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"tx": "t1"}, req.Entity)
}

func TestResponse_MarshalJSON(t *testing.T) {
	ok := Success(&ScoreResult{Prediction: PredictionFromClass(1), Confidence: 91, ModelName: "Random Forest"})
	data, err := json.Marshal(ok)
	require.NoError(t, err)
	assert.JSONEq(t, `{"prediction":"fraud","confidence":91,"modelName":"Random Forest"}`, string(data))

	fail := Failure(MessageMissingFields, ErrMissingFields)
	data, err = json.Marshal(fail)
	require.NoError(t, err)
	assert.JSONEq(t, `{"error":"Missing modelName, features, or featureOrder in input."}`, string(data))

	var back Response
	require.NoError(t, json.Unmarshal(data, &back))
	assert.False(t, back.OK())
	assert.Equal(t, MessageMissingFields, back.Err.Error)

	assert.Equal(t, PredictionLegitimate, PredictionFromClass(0))
}

func TestInferenceClassification(t *testing.T) {
	alignment := NewDomainError(ModuleFeature, ErrorCodeFeatureAlignment, `feature "V3" is missing`)
	wrapped := WrapDomainError(ModuleArtifact, ErrorCodeArtifactLoad, "load classifier", errors.New("no such file"))

	assert.True(t, IsInferenceError(alignment))
	assert.True(t, IsInferenceError(wrapped))
	assert.True(t, IsInferenceError(errors.New("plain")))
	assert.False(t, IsInferenceError(ErrParse))
	assert.False(t, IsInferenceError(ErrMissingFields))
	assert.False(t, IsInferenceError(NewDomainError(ModuleRequest, ErrorCodeGuardRejected, "Request rejected by rule: x")))
	assert.False(t, IsInferenceError(nil))

	assert.Equal(t, `ML Inference Error for Random Forest: feature "V3" is missing`, InferenceMessage("Random Forest", alignment))
	assert.Equal(t, "ML Inference Error for m: load classifier: no such file", InferenceMessage("m", wrapped))
	assert.True(t, IsArtifactLoad(wrapped))
	assert.False(t, IsNotFound(wrapped))
}

package notify

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/tendant/bucket-thumbnailer/pkg/schema"
)

const DefaultTaskName = "core.tasks.finalize_s3_thumbnails"

// EncodeFlat returns the message JSON.
func EncodeFlat(msg schema.ThumbnailMessage) ([]byte, error) {
	b, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("marshal message: %w", err)
	}
	return b, nil
}

// EncodeTask wraps the flat JSON as the single string argument of task and
// base64 encodes the task body into an envelope. id doubles as task id and
// correlation id.
func EncodeTask(msg schema.ThumbnailMessage, task, routingKey, id string) ([]byte, error) {
	flat, err := EncodeFlat(msg)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(schema.TaskBody{
		Task:    task,
		ID:      id,
		Args:    []string{string(flat)},
		Kwargs:  map[string]any{},
		Retries: 0,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal task body: %w", err)
	}

	env := schema.TaskEnvelope{
		Body:            base64.StdEncoding.EncodeToString(body),
		Headers:         map[string]string{},
		ContentType:     "application/json",
		ContentEncoding: "utf-8",
		Properties: schema.TaskProperties{
			CorrelationID: id,
			BodyEncoding:  "base64",
			DeliveryInfo: schema.DeliveryInfo{
				Priority:   0,
				RoutingKey: routingKey,
				Exchange:   routingKey,
			},
			DeliveryMode: 2,
			DeliveryTag:  id,
		},
	}

	out, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal envelope: %w", err)
	}
	return out, nil
}

// DecodeTask reverses EncodeTask.
func DecodeTask(data []byte) (schema.TaskEnvelope, schema.TaskBody, error) {
	var env schema.TaskEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return env, schema.TaskBody{}, fmt.Errorf("unmarshal envelope: %w", err)
	}
	raw, err := base64.StdEncoding.DecodeString(env.Body)
	if err != nil {
		return env, schema.TaskBody{}, fmt.Errorf("decode body: %w", err)
	}
	var body schema.TaskBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return env, schema.TaskBody{}, fmt.Errorf("unmarshal body: %w", err)
	}
	return env, body, nil
}

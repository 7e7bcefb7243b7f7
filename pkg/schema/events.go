// pkg/schema/events.go
package schema

// MessageTypeCreateThumbnail is the type tag of a completed thumbnail run.
const MessageTypeCreateThumbnail = "createThumbnail"

type FailureType string

const (
	FailureTypeRetryable  FailureType = "retryable"
	FailureTypePermanent  FailureType = "permanent"
	FailureTypeValidation FailureType = "validation"
)

// VariantResult describes one uploaded variant. Field names are the ones the
// downstream finalizer reads.
type VariantResult struct {
	TargetEdge int    `json:"TargetEdge"`
	Bucket     string `json:"Bucket"`
	Key        string `json:"Key"`
	SizeBytes  int64  `json:"SizeBytes"`
	Width      int    `json:"Width"`
	Height     int    `json:"Height"`
	Url        string `json:"Url"`
}

// ThumbnailMessage is the flat completion message. The results map is keyed
// by target edge and serializes with string keys ("48", "100", ...).
type ThumbnailMessage struct {
	Type             string                `json:"type"`
	SrcKey           string                `json:"srcKey"`
	SrcBucket        string                `json:"srcBucket"`
	ThumbnailResults map[int]VariantResult `json:"thumbnailResults"`
}

// TaskBody is the decoded body of a task envelope.
type TaskBody struct {
	Task    string         `json:"task"`
	ID      string         `json:"id"`
	Args    []string       `json:"args"`
	Kwargs  map[string]any `json:"kwargs"`
	Retries int            `json:"retries"`
}

type DeliveryInfo struct {
	Priority   int    `json:"priority"`
	RoutingKey string `json:"routing_key"`
	Exchange   string `json:"exchange"`
}

type TaskProperties struct {
	CorrelationID string       `json:"correlation_id"`
	BodyEncoding  string       `json:"body_encoding"`
	DeliveryInfo  DeliveryInfo `json:"delivery_info"`
	DeliveryMode  int          `json:"delivery_mode"`
	DeliveryTag   string       `json:"delivery_tag"`
	ReplyTo       string       `json:"reply_to,omitempty"`
}

// TaskEnvelope wraps a base64 encoded TaskBody for task-queue consumers.
type TaskEnvelope struct {
	Body            string            `json:"body"`
	Headers         map[string]string `json:"headers"`
	ContentType     string            `json:"content-type"`
	ContentEncoding string            `json:"content-encoding"`
	Properties      TaskProperties    `json:"properties"`
}

package xtream

import (
	"encoding/json"
	"strconv"
	"time"
)

// AuthInfo is the combined user and server payload returned by a bare
// player_api.php call.
type AuthInfo struct {
	UserInfo   UserInfo   `json:"user_info"`
	ServerInfo ServerInfo `json:"server_info"`
}

// UserInfo describes the credential's account state.
type UserInfo struct {
	Username          string  `json:"username"`
	Password          string  `json:"password"`
	Message           string  `json:"message"`
	Auth              FlexInt `json:"auth"`
	Status            string  `json:"status"`
	ExpDate           FlexInt `json:"exp_date"`
	IsTrial           FlexInt `json:"is_trial"`
	ActiveConnections FlexInt `json:"active_cons"`
	MaxConnections    FlexInt `json:"max_connections"`
	CreatedAt         FlexInt `json:"created_at"`
}

// IsAuthenticated reports whether the credential is valid and active.
func (u *UserInfo) IsAuthenticated() bool {
	return u.Auth.Int() == 1 && u.Status == "Active"
}

// ExpirationTime returns the account expiry, zero when unset.
func (u *UserInfo) ExpirationTime() time.Time {
	if u.ExpDate.Int() == 0 {
		return time.Time{}
	}
	return time.Unix(u.ExpDate.Int(), 0)
}

// IsExpired reports whether the account has lapsed.
func (u *UserInfo) IsExpired() bool {
	exp := u.ExpirationTime()
	return !exp.IsZero() && time.Now().After(exp)
}

// ServerInfo describes the provider server.
type ServerInfo struct {
	URL            string  `json:"url"`
	Port           FlexInt `json:"port"`
	HTTPSPort      FlexInt `json:"https_port"`
	ServerProtocol string  `json:"server_protocol"`
	Timezone       string  `json:"timezone"`
	TimestampNow   FlexInt `json:"timestamp_now"`
}

// Category is a provider content grouping.
type Category struct {
	CategoryID   FlexString `json:"category_id"`
	CategoryName string     `json:"category_name"`
	ParentID     FlexInt    `json:"parent_id"`
}

// Stream is one live channel entry.
type Stream struct {
	Num          FlexInt    `json:"num"`
	Name         string     `json:"name"`
	StreamType   string     `json:"stream_type"`
	StreamID     FlexInt    `json:"stream_id"`
	StreamIcon   string     `json:"stream_icon"`
	EPGChannelID string     `json:"epg_channel_id"`
	Added        FlexInt    `json:"added"`
	IsAdult      FlexInt    `json:"is_adult"`
	CategoryID   FlexString `json:"category_id"`
	CustomSID    string     `json:"custom_sid"`
	TVArchive    FlexInt    `json:"tv_archive"`
	DirectSource string     `json:"direct_source"`
}

// AddedTime returns when the provider added the stream.
func (s *Stream) AddedTime() time.Time {
	if s.Added.Int() == 0 {
		return time.Time{}
	}
	return time.Unix(s.Added.Int(), 0)
}

// VODStream is one video-on-demand entry.
type VODStream struct {
	Num                FlexInt    `json:"num"`
	Name               string     `json:"name"`
	StreamType         string     `json:"stream_type"`
	StreamID           FlexInt    `json:"stream_id"`
	StreamIcon         string     `json:"stream_icon"`
	Rating             FlexFloat  `json:"rating"`
	Added              FlexInt    `json:"added"`
	IsAdult            FlexInt    `json:"is_adult"`
	CategoryID         FlexString `json:"category_id"`
	ContainerExtension string     `json:"container_extension"`
}

// Series is one series listing entry.
type Series struct {
	Num          FlexInt    `json:"num"`
	Name         string     `json:"name"`
	SeriesID     FlexInt    `json:"series_id"`
	Cover        string     `json:"cover"`
	Plot         string     `json:"plot"`
	Genre        string     `json:"genre"`
	ReleaseDate  string     `json:"releaseDate"`
	LastModified FlexInt    `json:"last_modified"`
	Rating       FlexFloat  `json:"rating"`
	CategoryID   FlexString `json:"category_id"`
}

// EPGListing is one short-EPG entry.
type EPGListing struct {
	ID             FlexString `json:"id"`
	EPGId          FlexString `json:"epg_id"`
	Title          string     `json:"title"`
	Lang           string     `json:"lang"`
	Start          string     `json:"start"`
	End            string     `json:"end"`
	Description    string     `json:"description"`
	ChannelID      string     `json:"channel_id"`
	StartTimestamp FlexInt    `json:"start_timestamp"`
	StopTimestamp  FlexInt    `json:"stop_timestamp"`
}

// StartTime returns the programme start time.
func (e *EPGListing) StartTime() time.Time {
	if e.StartTimestamp.Int() > 0 {
		return time.Unix(e.StartTimestamp.Int(), 0)
	}
	if t, err := time.Parse("2006-01-02 15:04:05", e.Start); err == nil {
		return t
	}
	return time.Time{}
}

// EndTime returns the programme end time.
func (e *EPGListing) EndTime() time.Time {
	if e.StopTimestamp.Int() > 0 {
		return time.Unix(e.StopTimestamp.Int(), 0)
	}
	if t, err := time.Parse("2006-01-02 15:04:05", e.End); err == nil {
		return t
	}
	return time.Time{}
}

// EPGResponse wraps the short-EPG listings payload.
type EPGResponse struct {
	EPGListings []EPGListing `json:"epg_listings"`
}

// FlexInt decodes JSON numbers that providers sometimes send as strings.
// Unparseable values decode as zero rather than failing the whole payload.
type FlexInt int64

// Int returns the integer value.
func (f FlexInt) Int() int64 { return int64(f) }

// UnmarshalJSON accepts numbers, numeric strings, and empty strings.
func (f *FlexInt) UnmarshalJSON(data []byte) error {
	var n int64
	if err := json.Unmarshal(data, &n); err == nil {
		*f = FlexInt(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil && s != "" {
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			*f = FlexInt(n)
			return nil
		}
	}
	*f = 0
	return nil
}

// FlexFloat decodes JSON floats that providers sometimes send as strings.
type FlexFloat float64

// Float returns the float value.
func (f FlexFloat) Float() float64 { return float64(f) }

// UnmarshalJSON accepts numbers, numeric strings, and empty strings.
func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*f = FlexFloat(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil && s != "" {
		if n, err := strconv.ParseFloat(s, 64); err == nil {
			*f = FlexFloat(n)
			return nil
		}
	}
	*f = 0
	return nil
}

// FlexString decodes JSON values that may arrive as strings or numbers.
type FlexString string

// String returns the string value.
func (f FlexString) String() string { return string(f) }

// UnmarshalJSON accepts strings and bare numbers.
func (f *FlexString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*f = FlexString(n.String())
		return nil
	}
	*f = ""
	return nil
}

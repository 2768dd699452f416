package plex

import "strconv"

// ServerInfo holds server-level attributes from the API root.
type ServerInfo struct {
	FriendlyName       string `json:"friendlyName"`
	MachineIdentifier  string `json:"machineIdentifier"`
	Version            string `json:"version"`
	Platform           string `json:"platform"`
	PlatformVersion    string `json:"platformVersion"`
	MyPlexUsername     string `json:"myPlexUsername"`
	MyPlexMappingState string `json:"myPlexMappingState"`
	UpdatedAt          int64  `json:"updatedAt"`
	TranscoderActive   int    `json:"transcoderActiveVideoSessions"`
}

// Directory represents a library section.
type Directory struct {
	Key        string     `json:"key"`
	Title      string     `json:"title"`
	Type       string     `json:"type"` // movie, show, artist, photo
	UUID       string     `json:"uuid"`
	Agent      string     `json:"agent"`
	Scanner    string     `json:"scanner"`
	Language   string     `json:"language"`
	Refreshing bool       `json:"refreshing"`
	Location   []Location `json:"Location,omitempty"`
}

// Location is a folder path backing a library section.
type Location struct {
	ID   int    `json:"id"`
	Path string `json:"path"`
}

// Tag is a simple tagged attribute (genre, director, role, label).
type Tag struct {
	Tag string `json:"tag"`
}

// Media describes one media version of an item.
type Media struct {
	VideoResolution string `json:"videoResolution,omitempty"`
	VideoCodec      string `json:"videoCodec,omitempty"`
	AudioCodec      string `json:"audioCodec,omitempty"`
	Container       string `json:"container,omitempty"`
	Bitrate         int    `json:"bitrate,omitempty"`
	Duration        int64  `json:"duration,omitempty"`
	Width           int    `json:"width,omitempty"`
	Height          int    `json:"height,omitempty"`
}

// Metadata is a library item: movie, show, season, episode, artist,
// album, track, playlist or collection. Plex uses the same container
// entry for all of them; fields not applicable to a type stay zero.
type Metadata struct {
	RatingKey             string  `json:"ratingKey"`
	Key                   string  `json:"key"`
	Type                  string  `json:"type"`
	Title                 string  `json:"title"`
	GrandparentTitle      string  `json:"grandparentTitle,omitempty"`
	ParentTitle           string  `json:"parentTitle,omitempty"`
	ParentIndex           int     `json:"parentIndex,omitempty"`
	Index                 int     `json:"index,omitempty"`
	Year                  int     `json:"year,omitempty"`
	Summary               string  `json:"summary,omitempty"`
	Rating                float64 `json:"rating,omitempty"`
	UserRating            float64 `json:"userRating,omitempty"`
	ContentRating         string  `json:"contentRating,omitempty"`
	Studio                string  `json:"studio,omitempty"`
	Network               string  `json:"network,omitempty"`
	ViewCount             int     `json:"viewCount,omitempty"`
	ViewOffset            int64   `json:"viewOffset,omitempty"`
	Duration              int64   `json:"duration,omitempty"`
	AddedAt               int64   `json:"addedAt,omitempty"`
	ViewedAt              int64   `json:"viewedAt,omitempty"`
	OriginallyAvailableAt string  `json:"originallyAvailableAt,omitempty"`
	LibrarySectionID      int     `json:"librarySectionID,omitempty"`
	LibrarySectionKey     string  `json:"librarySectionKey,omitempty"`
	LibrarySectionTitle   string  `json:"librarySectionTitle,omitempty"`
	Thumb                 string  `json:"thumb,omitempty"`
	Art                   string  `json:"art,omitempty"`
	Guid                  string  `json:"guid,omitempty"`

	Genre    []Tag   `json:"Genre,omitempty"`
	Director []Tag   `json:"Director,omitempty"`
	Writer   []Tag   `json:"Writer,omitempty"`
	Role     []Tag   `json:"Role,omitempty"`
	Label    []Tag   `json:"Label,omitempty"`
	Media    []Media `json:"Media,omitempty"`

	// Playlist / collection attributes.
	PlaylistType   string `json:"playlistType,omitempty"`
	Smart          bool   `json:"smart,omitempty"`
	LeafCount      int    `json:"leafCount,omitempty"`
	ChildCount     int    `json:"childCount,omitempty"`
	PlaylistItemID int    `json:"playlistItemID,omitempty"`

	// Session attributes (only present under /status/sessions).
	SessionKey       string            `json:"sessionKey,omitempty"`
	AccountID        int               `json:"accountID,omitempty"`
	User             *SessionUser      `json:"User,omitempty"`
	Player           *Player           `json:"Player,omitempty"`
	Session          *SessionBandwidth `json:"Session,omitempty"`
	TranscodeSession *TranscodeSession `json:"TranscodeSession,omitempty"`
}

// ID returns the numeric rating key, or 0 if it cannot be parsed.
func (m *Metadata) ID() int {
	id, err := strconv.Atoi(m.RatingKey)
	if err != nil {
		return 0
	}
	return id
}

// Watched reports whether the item has been played at least once.
func (m *Metadata) Watched() bool {
	return m.ViewCount > 0
}

// SessionUser identifies the account driving a playback session.
type SessionUser struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Thumb string `json:"thumb,omitempty"`
}

// Player describes the device a session is playing on.
type Player struct {
	Address           string `json:"address,omitempty"`
	Device            string `json:"device,omitempty"`
	MachineIdentifier string `json:"machineIdentifier"`
	Platform          string `json:"platform,omitempty"`
	Product           string `json:"product,omitempty"`
	State             string `json:"state,omitempty"`
	Title             string `json:"title"`
	Version           string `json:"version,omitempty"`
	Local             bool   `json:"local,omitempty"`
}

// SessionBandwidth carries per-session transfer details.
type SessionBandwidth struct {
	ID        string `json:"id"`
	Bandwidth int    `json:"bandwidth"`
	Location  string `json:"location"`
}

// TranscodeSession describes an active transcode for a session.
type TranscodeSession struct {
	Key           string  `json:"key"`
	Progress      float64 `json:"progress"`
	Speed         float64 `json:"speed"`
	VideoDecision string  `json:"videoDecision"`
	AudioDecision string  `json:"audioDecision"`
	Container     string  `json:"container,omitempty"`
}

// PlayerClient is a controllable player advertised under /clients.
type PlayerClient struct {
	Name                 string `json:"name"`
	Host                 string `json:"host"`
	Address              string `json:"address"`
	Port                 int    `json:"port"`
	MachineIdentifier    string `json:"machineIdentifier"`
	Product              string `json:"product,omitempty"`
	Version              string `json:"version,omitempty"`
	Protocol             string `json:"protocol,omitempty"`
	ProtocolVersion      string `json:"protocolVersion,omitempty"`
	ProtocolCapabilities string `json:"protocolCapabilities,omitempty"`
	DeviceClass          string `json:"deviceClass,omitempty"`
}

// Timeline is a player timeline entry from /player/timeline/poll.
type Timeline struct {
	Type             string `json:"type"` // music, photo, video
	State            string `json:"state,omitempty"`
	RatingKey        string `json:"ratingKey,omitempty"`
	Time             int64  `json:"time,omitempty"`
	Duration         int64  `json:"duration,omitempty"`
	Volume           int    `json:"volume,omitempty"`
	Shuffle          int    `json:"shuffle,omitempty"`
	Repeat           int    `json:"repeat,omitempty"`
	AudioStreamID    string `json:"audioStreamID,omitempty"`
	SubtitleStreamID string `json:"subtitleStreamID,omitempty"`
}

// SystemAccount is a server-local account entry from /accounts.
type SystemAccount struct {
	ID                      int    `json:"id"`
	Key                     string `json:"key"`
	Name                    string `json:"name"`
	DefaultAudioLanguage    string `json:"defaultAudioLanguage,omitempty"`
	DefaultSubtitleLanguage string `json:"defaultSubtitleLanguage,omitempty"`
	Thumb                   string `json:"thumb,omitempty"`
}

// SystemDevice is a device entry from /devices.
type SystemDevice struct {
	ID               int    `json:"id"`
	Name             string `json:"name"`
	Platform         string `json:"platform,omitempty"`
	ClientIdentifier string `json:"clientIdentifier"`
	CreatedAt        int64  `json:"createdAt,omitempty"`
}

// ButlerTask is a scheduled server maintenance job.
type ButlerTask struct {
	Name               string `json:"name"`
	Interval           int    `json:"interval,omitempty"`
	Title              string `json:"title,omitempty"`
	Description        string `json:"description,omitempty"`
	ScheduleRandomized bool   `json:"scheduleRandomized,omitempty"`
	EnabledDefault     bool   `json:"enabledDefault,omitempty"`
}

// BandwidthSample is one record from /statistics/bandwidth.
type BandwidthSample struct {
	AccountID int   `json:"accountID"`
	DeviceID  int   `json:"deviceID"`
	Timespan  int   `json:"timespan"`
	At        int64 `json:"at"`
	Lan       bool  `json:"lan"`
	Bytes     int64 `json:"bytes"`
}

// ResourceSample is one record from /statistics/resources.
type ResourceSample struct {
	At                       int64   `json:"at"`
	HostCpuUtilization       float64 `json:"hostCpuUtilization"`
	ProcessCpuUtilization    float64 `json:"processCpuUtilization"`
	HostMemoryUtilization    float64 `json:"hostMemoryUtilization"`
	ProcessMemoryUtilization float64 `json:"processMemoryUtilization"`
}

// Artwork is an available poster or background for an item.
type Artwork struct {
	Key       string `json:"key"`
	RatingKey string `json:"ratingKey,omitempty"`
	Thumb     string `json:"thumb,omitempty"`
	Selected  bool   `json:"selected,omitempty"`
	Provider  string `json:"provider,omitempty"`
}

// SearchResult is one hub search hit with its relevance score.
type SearchResult struct {
	Score    float64  `json:"score"`
	Metadata Metadata `json:"Metadata"`
}

// Alert is a notification received over the server websocket.
type Alert struct {
	Type string                 `json:"type"`
	Size int                    `json:"size,omitempty"`
	Raw  map[string]interface{} `json:"raw,omitempty"`
}

// Friend is a shared user from plex.tv.
type Friend struct {
	ID         int    `json:"id"`
	UUID       string `json:"uuid,omitempty"`
	Username   string `json:"username"`
	Email      string `json:"email,omitempty"`
	Title      string `json:"title,omitempty"`
	Thumb      string `json:"thumb,omitempty"`
	Home       bool   `json:"home,omitempty"`
	Restricted bool   `json:"restricted,omitempty"`
}

// Resource is a device/server registered to the plex.tv account.
type Resource struct {
	Name             string       `json:"name"`
	Provides         string       `json:"provides"`
	ClientIdentifier string       `json:"clientIdentifier"`
	AccessToken      string       `json:"accessToken,omitempty"`
	Owned            bool         `json:"owned,omitempty"`
	Connections      []Connection `json:"connections,omitempty"`
}

// Connection is one reachable address for a Resource.
type Connection struct {
	URI      string `json:"uri"`
	Protocol string `json:"protocol,omitempty"`
	Address  string `json:"address,omitempty"`
	Port     int    `json:"port,omitempty"`
	Local    bool   `json:"local,omitempty"`
	Relay    bool   `json:"relay,omitempty"`
}

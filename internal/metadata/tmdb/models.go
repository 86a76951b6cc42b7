package tmdb

// Media is a single result from a list, search, find or similar payload.
// Movies carry title/release_date, series carry name/first_air_date. Multi
// search results also carry media_type.
type Media struct {
	ID           int     `json:"id"`
	Title        string  `json:"title,omitempty"`
	Name         string  `json:"name,omitempty"`
	Overview     string  `json:"overview"`
	PosterPath   *string `json:"poster_path"`
	BackdropPath *string `json:"backdrop_path"`
	VoteAverage  float64 `json:"vote_average"`
	VoteCount    int     `json:"vote_count"`
	ReleaseDate  string  `json:"release_date,omitempty"`
	FirstAirDate string  `json:"first_air_date,omitempty"`
	MediaType    string  `json:"media_type,omitempty"`
	GenreIDs     []int   `json:"genre_ids,omitempty"`
}

// PageResponse is the paginated envelope used by list and search endpoints.
type PageResponse struct {
	Page         int     `json:"page"`
	Results      []Media `json:"results"`
	TotalPages   int     `json:"total_pages"`
	TotalResults int     `json:"total_results"`
}

// FindResponse is the payload of /find/{external_id}.
type FindResponse struct {
	MovieResults []Media `json:"movie_results"`
	TVResults    []Media `json:"tv_results"`
}

// Genre represents a genre.
type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// ProductionCompany represents a production company.
type ProductionCompany struct {
	ID       int     `json:"id"`
	Name     string  `json:"name"`
	LogoPath *string `json:"logo_path"`
}

// SeasonSummary is a season entry embedded in series details.
type SeasonSummary struct {
	ID           int     `json:"id"`
	Name         string  `json:"name"`
	SeasonNumber int     `json:"season_number"`
	EpisodeCount int     `json:"episode_count"`
	AirDate      *string `json:"air_date"`
	PosterPath   *string `json:"poster_path"`
}

// ExternalIDs contains external identifiers.
type ExternalIDs struct {
	IMDbID *string `json:"imdb_id"`
	TVDbID *int    `json:"tvdb_id"`
}

// CastMember is a credited performer.
type CastMember struct {
	Name      string `json:"name"`
	Character string `json:"character"`
	Order     int    `json:"order"`
}

// Credits is the credits sub-resource.
type Credits struct {
	Cast []CastMember `json:"cast"`
}

// Video is a trailer, teaser or clip.
type Video struct {
	Key      string `json:"key"`
	Site     string `json:"site"`
	Type     string `json:"type"`
	Official bool   `json:"official"`
}

// Videos is the videos sub-resource.
type Videos struct {
	Results []Video `json:"results"`
}

// Details is the payload of /movie/{id} and /tv/{id}, including any
// sub-resources requested through append_to_response.
type Details struct {
	Media

	Genres              []Genre             `json:"genres"`
	Runtime             *int                `json:"runtime"`
	EpisodeRunTime      []int               `json:"episode_run_time"`
	Tagline             string              `json:"tagline"`
	ProductionCompanies []ProductionCompany `json:"production_companies"`
	Seasons             []SeasonSummary     `json:"seasons"`
	NumberOfSeasons     int                 `json:"number_of_seasons"`
	NumberOfEpisodes    int                 `json:"number_of_episodes"`
	IMDbID              *string             `json:"imdb_id"`

	ExternalIDs *ExternalIDs  `json:"external_ids,omitempty"`
	Credits     *Credits      `json:"credits,omitempty"`
	Similar     *PageResponse `json:"similar,omitempty"`
	Videos      *Videos       `json:"videos,omitempty"`
}

// Episode is an episode inside a season payload.
type Episode struct {
	ID            int     `json:"id"`
	EpisodeNumber int     `json:"episode_number"`
	SeasonNumber  int     `json:"season_number"`
	Name          string  `json:"name"`
	Overview      string  `json:"overview"`
	StillPath     *string `json:"still_path"`
	AirDate       *string `json:"air_date"`
	Runtime       *int    `json:"runtime"`
}

// SeasonDetails is the payload of /tv/{id}/season/{n}.
type SeasonDetails struct {
	ID           int       `json:"id"`
	Name         string    `json:"name"`
	SeasonNumber int       `json:"season_number"`
	AirDate      *string   `json:"air_date"`
	Episodes     []Episode `json:"episodes"`
}

// ErrorResponse represents a TMDB API error response.
type ErrorResponse struct {
	StatusCode    int    `json:"status_code"`
	StatusMessage string `json:"status_message"`
	Success       bool   `json:"success"`
}

// Configuration is the /configuration payload. Only the image section is read.
type Configuration struct {
	Images struct {
		SecureBaseURL string   `json:"secure_base_url"`
		PosterSizes   []string `json:"poster_sizes"`
	} `json:"images"`
}

package identity

import (
	"strconv"
	"strings"

	"movieverse/models"
)

const tmdbPosterBaseURL = "https://image.tmdb.org/t/p/w500"

// The upstream APIs disagree on field names and on how "unknown" is spelled.
// Rather than probing one loose record shape for every possible key, each
// source gets its own typed record with a Normalize method that produces
// the single models.MovieRecord shape. Missing fields normalize to the
// "N/A" sentinel so downstream string comparisons never need nil checks.

// OMDBRecord mirrors the OMDb API response shape.
type OMDBRecord struct {
	Title      string `json:"Title"`
	Year       string `json:"Year"`
	Poster     string `json:"Poster"`
	Genre      string `json:"Genre"`
	Runtime    string `json:"Runtime"`
	Plot       string `json:"Plot"`
	IMDBRating string `json:"imdbRating"`
	IMDBID     string `json:"imdbID"`
	Type       string `json:"Type"`
	Response   string `json:"Response"`
	Error      string `json:"Error"`
}

// OK reports whether OMDb answered with a usable record.
func (r OMDBRecord) OK() bool {
	return r.Response == "True"
}

// Normalize converts an OMDb record into the canonical movie shape.
func (r OMDBRecord) Normalize() models.MovieRecord {
	id, _ := Resolve(Identity{IMDBID: r.IMDBID, Title: r.Title, Year: r.Year})

	mediaType := strings.TrimSpace(r.Type)
	if mediaType == "" {
		mediaType = models.DefaultMediaType
	}

	return models.MovieRecord{
		CanonicalID: id,
		Title:       orUnknown(r.Title),
		Year:        orUnknown(r.Year),
		PosterURL:   orUnknown(r.Poster),
		Genre:       orUnknown(r.Genre),
		Rating:      orUnknown(r.IMDBRating),
		MediaType:   mediaType,
		Runtime:     orUnknown(r.Runtime),
		Plot:        orUnknown(r.Plot),
		SourceIDs:   models.SourceIDs{IMDBID: r.IMDBID},
	}
}

// TMDBRecord mirrors the TMDB movie shape (search, trending, details).
type TMDBRecord struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Overview    string  `json:"overview"`
	PosterPath  string  `json:"poster_path"`
	ReleaseDate string  `json:"release_date"`
	VoteAverage float64 `json:"vote_average"`
	Runtime     int     `json:"runtime"`
	Genres      []struct {
		Name string `json:"name"`
	} `json:"genres"`
	ExternalIDs struct {
		IMDBID string `json:"imdb_id"`
	} `json:"external_ids"`
}

// Normalize converts a TMDB record into the canonical movie shape.
func (r TMDBRecord) Normalize() models.MovieRecord {
	var tmdbID string
	if r.ID > 0 {
		tmdbID = strconv.FormatInt(r.ID, 10)
	}

	id, _ := Resolve(Identity{
		TMDBID: tmdbID,
		IMDBID: r.ExternalIDs.IMDBID,
		Title:  r.Title,
		Year:   YearOf(r.ReleaseDate),
	})

	poster := models.FieldUnknown
	if r.PosterPath != "" {
		poster = tmdbPosterBaseURL + r.PosterPath
	}

	rating := models.FieldUnknown
	if r.VoteAverage > 0 {
		rating = strconv.FormatFloat(r.VoteAverage, 'f', 1, 64)
	}

	runtime := models.FieldUnknown
	if r.Runtime > 0 {
		runtime = strconv.Itoa(r.Runtime) + " min"
	}

	genre := models.FieldUnknown
	if len(r.Genres) > 0 {
		names := make([]string, 0, len(r.Genres))
		for _, g := range r.Genres {
			names = append(names, g.Name)
		}
		genre = strings.Join(names, ", ")
	}

	return models.MovieRecord{
		CanonicalID: id,
		Title:       orUnknown(r.Title),
		Year:        orUnknown(YearOf(r.ReleaseDate)),
		PosterURL:   poster,
		Genre:       genre,
		Rating:      rating,
		MediaType:   models.DefaultMediaType,
		Runtime:     runtime,
		Plot:        orUnknown(r.Overview),
		SourceIDs:   models.SourceIDs{TMDBID: tmdbID, IMDBID: r.ExternalIDs.IMDBID},
	}
}

// JikanRecord mirrors the Jikan (MyAnimeList) anime shape.
type JikanRecord struct {
	MalID    int64   `json:"mal_id"`
	Title    string  `json:"title"`
	Synopsis string  `json:"synopsis"`
	Year     int     `json:"year"`
	Score    float64 `json:"score"`
	Type     string  `json:"type"`
	Episodes int     `json:"episodes"`
	Images   struct {
		JPG struct {
			ImageURL string `json:"image_url"`
		} `json:"jpg"`
	} `json:"images"`
	Genres []struct {
		Name string `json:"name"`
	} `json:"genres"`
}

// Normalize converts a Jikan record into the canonical movie shape. The MAL
// numeric ID takes the TMDB slot in the precedence order: both are bare
// numeric keys that stay stable within their own source.
func (r JikanRecord) Normalize() models.MovieRecord {
	var malID string
	if r.MalID > 0 {
		malID = strconv.FormatInt(r.MalID, 10)
	}

	year := ""
	if r.Year > 0 {
		year = strconv.Itoa(r.Year)
	}

	id, _ := Resolve(Identity{TMDBID: malID, Title: r.Title, Year: year})

	rating := models.FieldUnknown
	if r.Score > 0 {
		rating = strconv.FormatFloat(r.Score, 'f', 2, 64)
	}

	runtime := models.FieldUnknown
	if r.Episodes > 0 {
		runtime = strconv.Itoa(r.Episodes) + " ep"
	}

	genre := models.FieldUnknown
	if len(r.Genres) > 0 {
		names := make([]string, 0, len(r.Genres))
		for _, g := range r.Genres {
			names = append(names, g.Name)
		}
		genre = strings.Join(names, ", ")
	}

	return models.MovieRecord{
		CanonicalID: id,
		Title:       orUnknown(r.Title),
		Year:        orUnknown(year),
		PosterURL:   orUnknown(r.Images.JPG.ImageURL),
		Genre:       genre,
		Rating:      rating,
		MediaType:   "anime",
		Runtime:     runtime,
		Plot:        orUnknown(r.Synopsis),
	}
}

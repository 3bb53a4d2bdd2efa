package models

import "time"

// File is the stored metadata of an uploaded file. The bytes themselves
// live behind the external storage; only ownership matters here.
type File struct {
	ID         int       `db:"id" json:"id"`
	RoomID     int       `db:"room_id" json:"room_id"`
	UploaderID int       `db:"uploader_id" json:"uploader_id"`
	Filename   string    `db:"filename" json:"filename"`
	Filepath   string    `db:"filepath" json:"filepath"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

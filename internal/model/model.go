package model

import (
	"time"

	"gorm.io/datatypes"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&PathRecord{},
	&PoseRecord{},
}

// PathRecord is a named camera path in the path library
type PathRecord struct {
	ID        uint      `json:"id" gorm:"primarykey"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Name      string  `json:"name" gorm:"size:255;uniqueIndex;not null"`
	Source    string  `json:"source" gorm:"size:32"`
	Width     int     `json:"width"`
	Height    int     `json:"height"`
	PoseCount int     `json:"poseCount"`
	Length    float64 `json:"length"`

	// Metadata holds derived values such as the fov range
	Metadata datatypes.JSON `json:"metadata"`
	// Trajectory is the camera positions as a WKT LineString ZM, M being the pose index
	Trajectory string `json:"trajectory" gorm:"type:text"`

	Poses []PoseRecord `json:"poses" gorm:"foreignKey:PathID"`
}

func (*PathRecord) TableName() string {
	return "paths"
}

// PathMetadata is the JSON shape of PathRecord.Metadata
type PathMetadata struct {
	FovMin float64 `json:"fovMin"`
	FovMax float64 `json:"fovMax"`
	Aspect float64 `json:"aspect"`
}

// PoseRecord is one camera pose of a path, ordered by Seq
type PoseRecord struct {
	ID     uint `json:"id" gorm:"primarykey"`
	PathID uint `json:"pathId" gorm:"index:idx_path_pose,priority:1;not null"`
	Seq    int  `json:"seq" gorm:"index:idx_path_pose,priority:2"`

	PosX float64 `json:"posX"`
	PosY float64 `json:"posY"`
	PosZ float64 `json:"posZ"`

	RotX float64 `json:"rotX"`
	RotY float64 `json:"rotY"`
	RotZ float64 `json:"rotZ"`
	RotW float64 `json:"rotW"`

	FovY   float64 `json:"fovY"`
	Aspect float64 `json:"aspect"`
	Near   float64 `json:"near"`
	Far    float64 `json:"far"`
}

func (*PoseRecord) TableName() string {
	return "poses"
}

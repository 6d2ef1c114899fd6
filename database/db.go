package database

import (
	"github.com/activecm/mgosec"
	"github.com/globalsign/mgo"
	log "github.com/sirupsen/logrus"
	"github.com/soteria-soc/soteria/config"
)

//DB is the workhorse container for messing with the database
type DB struct {
	Session *mgo.Session
	conf    *config.Config
	log     *log.Logger
}

//NewDB constructs a new DB struct
func NewDB(conf *config.Config, log *log.Logger) (*DB, error) {
	session, err := connectToMongoDB(conf)
	if err != nil {
		return nil, err
	}
	session.SetSocketTimeout(conf.S.MongoDB.SocketTimeout)
	session.SetSyncTimeout(conf.S.MongoDB.SocketTimeout)
	session.SetCursorTimeout(0)

	return &DB{
		Session: session,
		conf:    conf,
		log:     log,
	}, nil
}

//connectToMongoDB connects to MongoDB possibly with authentication and TLS
func connectToMongoDB(conf *config.Config) (*mgo.Session, error) {
	connString := conf.S.MongoDB.ConnectionString
	authMechanism := conf.R.MongoDB.AuthMechanismParsed
	tlsConfig := conf.R.MongoDB.TLS.TLSConfig

	if conf.S.MongoDB.TLS.Enabled {
		return mgosec.Dial(connString, authMechanism, tlsConfig)
	}
	return mgosec.DialInsecure(connString, authMechanism)
}

//CreateCollection creates a collection with the given indexes in the
//metadatabase
func (d *DB) CreateCollection(name string, indexes []mgo.Index) error {
	session := d.Session.Copy()
	defer session.Close()

	collection := session.DB(d.conf.S.MongoDB.MetaDB).C(name)

	for _, index := range indexes {
		err := collection.EnsureIndex(index)
		if err != nil {
			return err
		}
	}
	return nil
}

//Close closing the underlying connection to MongoDB
func (d *DB) Close() {
	d.Session.Close()
}

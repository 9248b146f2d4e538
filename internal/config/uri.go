package config

import (
	"net"
	neturl "net/url"
	"strconv"
	"strings"
	"time"
)

// URIValue returns the explicit connection URI, or one assembled from the
// host fields.
func (c MongoRuntimeConfig) URIValue() string {
	if v := strings.TrimSpace(c.URI); v != "" {
		return v
	}

	host := strings.TrimSpace(c.Host)
	if host == "" {
		host = defaultMongoHost
	}
	port := c.Port
	if port == 0 {
		port = defaultMongoPort
	}

	u := &neturl.URL{
		Scheme: "mongodb",
		Host:   net.JoinHostPort(host, strconv.Itoa(port)),
		Path:   "/" + strings.TrimSpace(c.Database),
	}
	username := strings.TrimSpace(c.Username)
	if username != "" {
		if c.Password != "" {
			u.User = neturl.UserPassword(username, c.Password)
		} else {
			u.User = neturl.User(username)
		}
	}

	if len(c.Params) > 0 {
		query := neturl.Values{}
		for key, value := range c.Params {
			k := strings.TrimSpace(key)
			v := strings.TrimSpace(value)
			if k != "" && v != "" {
				query.Set(k, v)
			}
		}
		if len(query) > 0 {
			u.RawQuery = query.Encode()
		}
	}
	return u.String()
}

func (c MongoRuntimeConfig) ServerSelectionTimeout() time.Duration {
	if c.ServerSelectionTimeoutMS <= 0 {
		return defaultMongoSSTMS * time.Millisecond
	}
	return time.Duration(c.ServerSelectionTimeoutMS) * time.Millisecond
}

func (c MongoRuntimeConfig) SocketTimeout() time.Duration {
	if c.SocketTimeoutMS <= 0 {
		return defaultMongoSocketMS * time.Millisecond
	}
	return time.Duration(c.SocketTimeoutMS) * time.Millisecond
}

func (c RedisRuntimeConfig) URLValue() string {
	if u := normalizeRedisRawURL(c.URL); u != "" {
		return u
	}

	host := strings.TrimSpace(c.Host)
	if host == "" {
		host = defaultRedisHost
	}
	port := c.Port
	if port == 0 {
		port = defaultRedisPort
	}
	db := c.DB
	if db < 0 {
		db = defaultRedisDB
	}

	scheme := "redis"
	if c.TLS {
		scheme = "rediss"
	}

	u := &neturl.URL{
		Scheme: scheme,
		Host:   net.JoinHostPort(host, strconv.Itoa(port)),
		Path:   "/" + strconv.Itoa(db),
	}
	username := strings.TrimSpace(c.Username)
	if username != "" {
		if c.Password != "" {
			u.User = neturl.UserPassword(username, c.Password)
		} else {
			u.User = neturl.User(username)
		}
	} else if c.Password != "" {
		u.User = neturl.UserPassword("", c.Password)
	}
	return u.String()
}

package jira

import "encoding/json"

// searchPage is one page of GET /rest/api/3/search/jql results.
// The endpoint reports no total count; isLast and nextPageToken are the
// only termination signals.
type searchPage struct {
	Issues        []issue `json:"issues"`
	IsLast        bool    `json:"isLast"`
	NextPageToken string  `json:"nextPageToken"`
}

// issue is a Jira issue as returned by the search API.
type issue struct {
	ID     string      `json:"id"`
	Key    string      `json:"key"`
	Fields issueFields `json:"fields"`
}

// issueFields carries the fields requested via the search fields parameter.
// Description and comment bodies are Atlassian Document Format JSON and
// stay raw; the normaliser interprets them.
type issueFields struct {
	Summary     string          `json:"summary"`
	Description json.RawMessage `json:"description"`
	Status      *namedField     `json:"status"`
	Priority    *namedField     `json:"priority"`
	IssueType   *namedField     `json:"issuetype"`
	Reporter    *userField      `json:"reporter"`
	Assignee    *userField      `json:"assignee"`
	Created     string          `json:"created"`
	Updated     string          `json:"updated"`
	Comment     *commentList    `json:"comment"`
}

// namedField is the {name: ...} shape shared by status, priority and type.
type namedField struct {
	Name string `json:"name"`
}

// userField is the subset of a Jira user we care about.
type userField struct {
	DisplayName string `json:"displayName"`
}

// commentList is the container for an issue's comments.
type commentList struct {
	Comments []comment `json:"comments"`
}

// comment is one issue comment.
type comment struct {
	ID      string          `json:"id"`
	Author  *userField      `json:"author"`
	Created string          `json:"created"`
	Body    json.RawMessage `json:"body"`
}

// projectPage is one page of GET /rest/api/3/project/search results.
type projectPage struct {
	Values []project `json:"values"`
	IsLast bool      `json:"isLast"`
}

// project identifies a Jira project.
type project struct {
	ID   string `json:"id"`
	Key  string `json:"key"`
	Name string `json:"name"`
}

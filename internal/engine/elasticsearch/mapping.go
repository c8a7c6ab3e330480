package elasticsearch

// DefaultIndexName is the default Elasticsearch index used for goods documents.
const DefaultIndexName = "goods"

// buildIndexMapping returns the JSON mapping for the goods index. Spec values
// are mapped dynamically: every string under specs gets a keyword sub-field
// used by filters and facet aggregations.
func buildIndexMapping() string {
	return `{
  "settings": {
    "number_of_shards": 1,
    "number_of_replicas": 0
  },
  "mappings": {
    "dynamic_templates": [
      {
        "specs_as_keyword": {
          "path_match": "specs.*",
          "match_mapping_type": "string",
          "mapping": {
            "type": "text",
            "fields": { "keyword": { "type": "keyword", "ignore_above": 256 } }
          }
        }
      }
    ],
    "properties": {
      "id":          { "type": "long" },
      "all":         { "type": "text" },
      "sub_title":   { "type": "keyword", "index": false },
      "cid1":        { "type": "long" },
      "cid2":        { "type": "long" },
      "cid3":        { "type": "long" },
      "brand_id":    { "type": "long" },
      "create_time": { "type": "date" },
      "price":       { "type": "long" },
      "skus":        { "type": "keyword", "index": false, "doc_values": false },
      "specs":       { "type": "object" }
    }
  }
}`
}

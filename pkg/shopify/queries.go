package shopify

// Resource names double as the root field of their list query.
const (
	ResourceCustomers = "customers"
	ResourceOrders    = "orders"
	ResourceProducts  = "products"
)

// shopQuery probes the credential before any stage runs.
const shopQuery = `query {
  shop {
    name
    myshopifyDomain
  }
}`

const customersQuery = `query Customers($first: Int!, $after: String) {
  customers(first: $first, after: $after) {
    pageInfo {
      hasNextPage
      endCursor
    }
    edges {
      node {
        id
        firstName
        lastName
        email
        phone
        defaultAddress {
          city
          province
          country
        }
      }
    }
  }
}`

const ordersQuery = `query Orders($first: Int!, $after: String) {
  orders(first: $first, after: $after) {
    pageInfo {
      hasNextPage
      endCursor
    }
    edges {
      node {
        id
        name
        createdAt
        customer {
          id
        }
        totalPriceSet {
          shopMoney {
            amount
            currencyCode
          }
        }
        lineItems(first: 50) {
          edges {
            node {
              title
              quantity
            }
          }
        }
      }
    }
  }
}`

const productsQuery = `query Products($first: Int!, $after: String) {
  products(first: $first, after: $after) {
    pageInfo {
      hasNextPage
      endCursor
    }
    edges {
      node {
        id
        title
        description
        status
        tags
        variants(first: 10) {
          edges {
            node {
              price
              compareAtPrice
            }
          }
        }
        images(first: 10) {
          edges {
            node {
              url
            }
          }
        }
      }
    }
  }
}`
